package cmd

import (
	"os"

	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// newLogger builds the CLI's structured logger: timestamped, prefixed
// output in the teacher's logrus + logrus-prefixed-formatter pairing.
// Library code under pkg/datalog and pkg/ir never logs directly — only
// this CLI layer does.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &prefixed.TextFormatter{
		DisableColors:   false,
		FullTimestamp:   true,
		ForceFormatting: true,
	}
	if viper.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
