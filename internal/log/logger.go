package log

import (
	"go.uber.org/zap"
)

var base = zap.NewNop()

// Init builds the process logger (production or development encoding) and
// installs it as the package default.
func Init(prod bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if prod {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	base = l
	return l, nil
}

func L() *zap.Logger { return base }

func Infof(format string, args ...any)  { base.Sugar().Infof(format, args...) }
func Errorf(format string, args ...any) { base.Sugar().Errorf(format, args...) }
