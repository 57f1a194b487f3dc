// Copyright (c) The ClusterLink Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	logrusFieldStack = 6

	timestampFormat = "2006-01-02 15:04:05"
)

// Set configures the standard logrus logger (format, file, level).
// A relative log file name is placed under the user home directory.
// An unknown level falls back to info.
func Set(logLevel, logFileName string) (*os.File, error) {
	var logfile *os.File

	if logFileName != "" {
		logFileFullPath, err := logFilePath(logFileName)
		if err != nil {
			return nil, err
		}

		if err := os.MkdirAll(filepath.Dir(logFileFullPath), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create log folder: %w", err)
		}

		logfile, err = os.OpenFile(logFileFullPath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}

		logrus.SetOutput(logfile)
	}

	ll, err := logrus.ParseLevel(logLevel)
	if err != nil {
		ll = logrus.InfoLevel
	}
	logrus.SetLevel(ll)
	logrus.SetFormatter(&formatter{
		TextFormatter: &logrus.TextFormatter{
			ForceColors:     logfile == nil,
			DisableColors:   logfile != nil,
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			PadLevelText:    true,
			DisableQuote:    true,
		},
	})

	return logfile, nil
}

func logFilePath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, name), nil
}

type formatter struct {
	*logrus.TextFormatter
}

// Format sets the line number and file for errors and fatal.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.Level <= logrus.ErrorLevel {
		_, file, line, _ := runtime.Caller(logrusFieldStack)
		entry.Data["file"] = file
		entry.Data["line"] = fmt.Sprintf("%d", line)
	}

	return f.TextFormatter.Format(entry)
}
