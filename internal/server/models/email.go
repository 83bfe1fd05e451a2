package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// EmailIDNotSet marks an EmailData that has no server record yet.
const EmailIDNotSet int64 = -1

// EmailData is sent by clients that want something mailed to a previously
// confirmed address. Attachment holds the backup CSV when present.
type EmailData struct {
	EmailID      int64
	EmailAddress string
	Attachment   []byte
}

func (e EmailData) Serialize() []byte {
	var b wire.Buffer
	return b.PutLong(e.EmailID).PutString(e.EmailAddress).PutBytes(e.Attachment).Bytes()
}

func DeserializeEmailData(data []byte) (EmailData, error) {
	r := wire.NewReader(data)
	var (
		e   EmailData
		err error
	)
	if e.EmailID, err = r.ReadLong(); err != nil {
		return EmailData{}, fmt.Errorf("%w: email id: %w", common.ErrorBadData, err)
	}
	if e.EmailAddress, err = r.ReadString(); err != nil {
		return EmailData{}, fmt.Errorf("%w: email address: %w", common.ErrorBadData, err)
	}
	att, err := r.ReadBytes()
	if err != nil {
		return EmailData{}, fmt.Errorf("%w: attachment: %w", common.ErrorBadData, err)
	}
	e.Attachment = append([]byte(nil), att...)
	if r.Len() != 0 {
		return EmailData{}, fmt.Errorf("%w: trailing bytes after email data", common.ErrorBadData)
	}
	return e, nil
}

// EmailRecord is the server side of an email verification. Only a salted
// hash of the address is kept.
type EmailRecord struct {
	ID           int64
	Hash         []byte
	Salt         []byte
	LastAccessed time.Time
	IsVerified   bool
}
