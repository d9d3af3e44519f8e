//go:build linux

package admission

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
)

// readAvailableMemory parses /proc/meminfo's MemAvailable field, in
// bytes. No third-party library in the dependency pack exposes available
// system memory (mikoim/go-loadavg, the one admission-relevant sensor in
// the pack, only covers load average) — see DESIGN.md.
func readAvailableMemory() (uint64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, errors.New("admission: malformed MemAvailable line")
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	return 0, errors.New("admission: MemAvailable not found in /proc/meminfo")
}
