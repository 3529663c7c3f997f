// Package logrus adapts sirupsen/logrus to the storage.Logger interface.
package logrus

import (
	"github.com/IvanBrykalov/cachestore/storage"
	"github.com/sirupsen/logrus"
)

type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f storage.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f storage.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f storage.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f storage.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

var _ storage.Logger = LogrusLogger{}
