package observability

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/internal/conf"
)

var (
	loggingOnce sync.Once
)

// ConfigureLogging sets up the standard logrus logger once per process and
// returns an entry carrying the configured static fields.
func ConfigureLogging(config *conf.LoggingConfig) (*logrus.Entry, error) {
	var err error

	loggingOnce.Do(func() {
		logrus.SetFormatter(&logrus.JSONFormatter{})

		// use a file if you want
		if config.File != "" {
			f, errOpen := os.OpenFile(config.File, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660) //#nosec G302 -- Log files should be rw-rw-r--
			if errOpen != nil {
				err = errOpen
				return
			}
			logrus.SetOutput(f)
			logrus.Infof("Set output file to %s", config.File)
		}

		if config.Level != "" {
			level, errParse := logrus.ParseLevel(config.Level)
			if errParse != nil {
				err = errParse
				return
			}
			logrus.SetLevel(level)
			logrus.Debug("Set log level to: " + logrus.GetLevel().String())
		}
	})

	f := logrus.Fields{}
	for k, v := range config.Fields {
		f[k] = v
	}
	return logrus.WithFields(f), err
}
