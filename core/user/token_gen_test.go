package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey := []byte("secret")
	timeout := 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "3f0b9a4e-8a0c-4f34-9a52-0d0b6a3b1c11",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := makeToken(usr, secretKey)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := makeToken(usr, secretKey)
	NowFunc = time.Now // reset
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	otherUsr := usr
	otherUsr.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		usr     User
		token   string
		secret  []byte
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: validToken, secret: []byte("other"), wantErr: errInvalidToken},
		{name: "user logged in since", usr: otherUsr, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := secretKey
			if tt.secret != nil {
				secret = tt.secret
			}
			if err := verifyToken(tt.usr, tt.token, secret, timeout); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "3f0b9a4e-8a0c-4f34-9a52-0d0b6a3b1c11"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %s, want %s", id, usr.ID)
	}
}
