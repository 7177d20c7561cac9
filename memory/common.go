package memory

import (
	"github.com/sirupsen/logrus"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		logrus.Fatalln(err)
	}

	log = logrus.WithField("subsys", "memory")
)
