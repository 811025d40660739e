package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = time.Hour

	now := time.Now()
	usr := User{
		ID:        "0c6c1842-f1ca-4df5-a6ff-fbdf41929bb2",
		Username:  "t",
		Email:     "t@test.test",
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := makeToken(usr)

	// generate an expired token
	hourLate := passwordResetTimeoutDelta + time.Hour
	nowFunc = func() time.Time { return time.Now().Add(-hourLate) }
	expiredToken := makeToken(usr)
	nowFunc = time.Now // reset

	// a token minted against the old password dies with a password change
	otherUsr := usr
	_ = otherUsr.SetPassword("new-pwd")
	staleToken := makeToken(usr)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: otherUsr, token: staleToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8c2732b1-9b49-4cc8-9b0e-b52f20b7b66a"}
	uid := EncodeUID(usr)
	id, err := DecodeUID(uid)
	if err != nil {
		t.Fatalf("DecodeUID() failed: %v", err)
	}
	if id != usr.ID {
		t.Errorf("DecodeUID() = %v, want %v", id, usr.ID)
	}
}
