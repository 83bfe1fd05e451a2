package models

import (
	"fmt"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// LoginData identifies a user and carries the key their flights are
// encrypted with. SchemaVersion is the flight format the client wants back.
type LoginData struct {
	Username      string
	Key           []byte
	SchemaVersion int32
}

func (l LoginData) Serialize() []byte {
	var b wire.Buffer
	return b.PutString(l.Username).PutBytes(l.Key).PutInt(l.SchemaVersion).Bytes()
}

func DeserializeLoginData(data []byte) (LoginData, error) {
	r := wire.NewReader(data)
	l, err := readLoginData(r)
	if err != nil {
		return LoginData{}, err
	}
	if r.Len() != 0 {
		return LoginData{}, fmt.Errorf("%w: trailing bytes after login data", common.ErrorBadData)
	}
	return l, nil
}

func readLoginData(r *wire.Reader) (LoginData, error) {
	var (
		l   LoginData
		err error
	)
	if l.Username, err = r.ReadString(); err != nil {
		return LoginData{}, fmt.Errorf("%w: username: %w", common.ErrorBadData, err)
	}
	key, err := r.ReadBytes()
	if err != nil {
		return LoginData{}, fmt.Errorf("%w: key: %w", common.ErrorBadData, err)
	}
	l.Key = append([]byte(nil), key...)
	if l.SchemaVersion, err = r.ReadInt(); err != nil {
		return LoginData{}, fmt.Errorf("%w: schema version: %w", common.ErrorBadData, err)
	}
	return l, nil
}

// LoginDataWithEmail is LoginData plus an optional email address.
type LoginDataWithEmail struct {
	LoginData
	Email string
}

func (l LoginDataWithEmail) Serialize() []byte {
	var b wire.Buffer
	return b.PutRaw(l.LoginData.Serialize()).PutString(l.Email).Bytes()
}

func DeserializeLoginDataWithEmail(data []byte) (LoginDataWithEmail, error) {
	r := wire.NewReader(data)
	l, err := readLoginData(r)
	if err != nil {
		return LoginDataWithEmail{}, err
	}
	email, err := r.ReadString()
	if err != nil {
		return LoginDataWithEmail{}, fmt.Errorf("%w: email: %w", common.ErrorBadData, err)
	}
	if r.Len() != 0 {
		return LoginDataWithEmail{}, fmt.Errorf("%w: trailing bytes after login data", common.ErrorBadData)
	}
	return LoginDataWithEmail{LoginData: l, Email: email}, nil
}
