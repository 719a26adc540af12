// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sentence

import (
	"fmt"
	"os"
)

// DefaultLogPath is where accepted PLSATTIT lines are appended.
const DefaultLogPath = "PLSATTIT_data.txt"

// Recorder stores accepted raw lines.
type Recorder interface {
	Append(line string) error
}

// FileLog appends each line, newline-terminated, to Path. The file is opened
// and closed on every call so that nothing is lost if the process is killed;
// it is never truncated or rotated.
type FileLog struct {
	Path string
}

// Append writes line plus "\n" to the end of the file, creating it if needed.
func (l FileLog) Append(line string) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.Path, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", l.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.Path, err)
	}
	return nil
}
