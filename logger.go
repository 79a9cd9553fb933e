package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	log            = logrus.New()
	verbosityLevel int
)

// initLogger sets the log level from -v. Level 0 keeps the logger silent so
// stdout/stderr only carry the run's results.
func initLogger(level int, out io.Writer) {
	verbosityLevel = level
	log.SetOutput(out)

	if verbosityLevel != 0 {
		switch verbosityLevel {
		case 4:
			log.SetLevel(logrus.TraceLevel)
		case 3:
			log.SetLevel(logrus.DebugLevel)
		case 2:
			log.SetLevel(logrus.InfoLevel)
		default:
			log.SetLevel(logrus.WarnLevel)
		}

		forceColors := false
		if f, ok := out.(*os.File); ok {
			forceColors = isatty.IsTerminal(f.Fd())
		}
		log.SetFormatter(&logrus.TextFormatter{ForceColors: forceColors, FullTimestamp: true})
	}
}

func logInfof(format string, args ...interface{}) {
	if verbosityLevel != 0 {
		log.Infof(format, args...)
	}
}

func logDebugf(format string, args ...interface{}) {
	if verbosityLevel != 0 {
		log.Debugf(format, args...)
	}
}

func logWarnf(format string, args ...interface{}) {
	if verbosityLevel != 0 {
		log.Warnf(format, args...)
	}
}

func logErrorf(format string, args ...interface{}) {
	if verbosityLevel != 0 {
		log.Errorf(format, args...)
	}
}
