package errors

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// LogError logs err with its classification attached as structured
// fields so delivered, retried and dropped notifications stay
// distinguishable in the log stream.
func LogError(logger *logrus.Logger, err error, message string) {
	if err == nil {
		return
	}

	fields := logrus.Fields{}
	var appErr *AppError
	if errors.As(err, &appErr) {
		fields["code"] = appErr.Code
		fields["retryable"] = appErr.Retryable
		for k, v := range appErr.Context {
			fields[k] = v
		}
	}

	logger.WithFields(fields).WithError(err).Error(message)
}
