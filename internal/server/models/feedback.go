package models

import (
	"fmt"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

type FeedbackData struct {
	Feedback    string
	ContactInfo string
}

func (f FeedbackData) Serialize() []byte {
	var b wire.Buffer
	return b.PutString(f.Feedback).PutString(f.ContactInfo).Bytes()
}

func DeserializeFeedbackData(data []byte) (FeedbackData, error) {
	r := wire.NewReader(data)
	var (
		f   FeedbackData
		err error
	)
	if f.Feedback, err = r.ReadString(); err != nil {
		return FeedbackData{}, fmt.Errorf("%w: feedback: %w", common.ErrorBadData, err)
	}
	if f.ContactInfo, err = r.ReadString(); err != nil {
		return FeedbackData{}, fmt.Errorf("%w: contact info: %w", common.ErrorBadData, err)
	}
	if r.Len() != 0 {
		return FeedbackData{}, fmt.Errorf("%w: trailing bytes after feedback", common.ErrorBadData)
	}
	return f, nil
}
