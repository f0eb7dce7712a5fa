package inmemdb

import (
	"context"
	"maps"
	"sync"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

type tables struct {
	users       map[string]user.User
	classrooms  map[int64]classroom.ClassRoom
	enrollments map[int64]classroom.Enrollment
	blocks      map[int64]classroom.ContentBlock
	assignments map[int64]assignment.Assignment
	questions   map[int64]assignment.Question
	submissions map[int64]assignment.Submission
	sessions    map[int64]attendance.Session
	records     map[int64]attendance.Record
	pkCount     int64
}

func (t tables) clone() tables {
	return tables{
		users:       maps.Clone(t.users),
		classrooms:  maps.Clone(t.classrooms),
		enrollments: maps.Clone(t.enrollments),
		blocks:      maps.Clone(t.blocks),
		assignments: maps.Clone(t.assignments),
		questions:   maps.Clone(t.questions),
		submissions: maps.Clone(t.submissions),
		sessions:    maps.Clone(t.sessions),
		records:     maps.Clone(t.records),
		pkCount:     t.pkCount,
	}
}

// DB keeps every table in memory. Transactions are serialized and rolled back by restoring a snapshot,
// so writes made outside a transaction wait for the running one to finish.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    tables
}

func Open() *DB {
	return &DB{t: tables{
		users:       make(map[string]user.User),
		classrooms:  make(map[int64]classroom.ClassRoom),
		enrollments: make(map[int64]classroom.Enrollment),
		blocks:      make(map[int64]classroom.ContentBlock),
		assignments: make(map[int64]assignment.Assignment),
		questions:   make(map[int64]assignment.Question),
		submissions: make(map[int64]assignment.Submission),
		sessions:    make(map[int64]attendance.Session),
		records:     make(map[int64]attendance.Record),
	}}
}

// nextID must be called with mu held.
func (db *DB) nextID() int64 {
	db.t.pkCount++
	return db.t.pkCount
}

// txExec marks the repository calls made inside RunInTx. It is never used to run queries.
type txExec struct {
	core.DBExecutor
}

func inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	_, ok := exec[0].(txExec)
	return ok
}

// lock takes the write lock and returns its release func.
func (db *DB) lock(exec []core.DBExecutor) func() {
	tx := inTx(exec)
	if !tx {
		db.txMu.Lock()
	}
	db.mu.Lock()
	return func() {
		db.mu.Unlock()
		if !tx {
			db.txMu.Unlock()
		}
	}
}

var _ core.TxRunner = (*DB)(nil) // interface compliance check

// RunInTx runs fn with an executor the repositories recognize. Any error restores the tables as they were.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	defer func() {
		p := recover()
		if err != nil || p != nil {
			db.mu.Lock()
			db.t = snapshot
			db.mu.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	return fn(txExec{})
}
