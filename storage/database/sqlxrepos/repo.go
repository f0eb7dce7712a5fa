package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	return core.FirstExec(repo.exec, svcExec)
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps unique violations to a core.ConflictError with reason.
func trapUniqueErr(err error, reason, msg string) error {
	if database.IsUniqueViolation(err) {
		return core.NewConflictError(reason)
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from ordering, keeping only allowed fields.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, def string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		list = append(list, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(list) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

// where accumulates positional conditions.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond where "?" stands for the next positional argument.
func (w *where) add(cond string, args ...interface{}) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
