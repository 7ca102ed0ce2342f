package sink

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Log prints each record through logrus. Useful as a default and for
// smoke-testing a pipeline before pointing it at a real consumer.
type Log struct {
	log *logrus.Entry
}

func NewLog(log *logrus.Entry) *Log {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Log{log: log}
}

func (s *Log) Emit(_ context.Context, rec Record) error {
	s.log.WithFields(logrus.Fields{
		"bucket": rec.Bucket,
		"key":    rec.Key,
	}).Info(rec.Payload)
	return nil
}
