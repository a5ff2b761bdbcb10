package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/errors"
)

// parseDurationFlag parses a duration flag. Returns zero duration if the
// flag is empty.
func parseDurationFlag(name, flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid --%s", flag, name),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("--%s can't be negative", name),
			"Use a positive duration like 30s.")
	}
	return duration, nil
}

// overrideStream applies --host and --port on top of the loaded config.
func overrideStream(s *config.StreamConfig, host string, port int) error {
	if host != "" {
		s.Host = host
	}
	if port != 0 {
		if port < 1 || port > 65535 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Port %d is out of range", port),
				"Use a port between 1 and 65535.")
		}
		s.Port = port
	}
	return nil
}
