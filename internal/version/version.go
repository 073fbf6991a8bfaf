package version

import (
	"fmt"
	"runtime/debug"
)

// Переопределяются при сборке через -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки. Если коммит не был
// прошит при сборке, берём ревизию из build info.
func Info() (v, c, d string) {
	if commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
				}
			}
		}
	}
	return version, commit, date
}

// String форматирует версию для стартового баннера.
func String() string {
	v, c, d := Info()
	return fmt.Sprintf("version=%s commit=%s date=%s", v, c, d)
}
