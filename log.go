package ndarray

import "github.com/sirupsen/logrus"

var log = logrus.New()

// SetLogger replaces the package logger. passing nil restores a default
// logrus logger
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
	}
	log = l
}

// Logger returns the package logger
func Logger() *logrus.Logger {
	return log
}
