package singleton

import (
	"github.com/sirupsen/logrus"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs. It is also invoked
	// when the process-wide Accessor fails to build its table.
	DefaultExitFn = func(err error) {
		logrus.Fatalln(err)
	}

	log = logrus.WithField("subsys", "singleton")
)
