package log

import "go.uber.org/zap"

// L is the process-wide logger. It is a nop until Init runs so early
// startup code can log without nil checks.
var L = zap.NewNop()

// Init builds the global logger. Production mode is JSON at info level;
// development mode is verbose with caller info.
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
	L = l
	return l, nil
}
