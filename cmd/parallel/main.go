// Command parallel is a CPU load balancer: it expands a command template
// once per input (or per permutation of input lists) and runs the
// resulting child processes across a pool of worker slots.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mmstick/parallel/internal/engine"
)

func main() {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if cfg.NumCPUCores {
		fmt.Println(runtime.NumCPU())
		os.Exit(0)
	}

	code, err := engine.Run(cfg)
	if err != nil && code == 0 {
		code = 1
	}
	os.Exit(code)
}

const usage = `usage: parallel [OPTIONS] [COMMAND] [MODE ARGS]...
  MODE is one of ::: :::+ :::: ::::+

  -j, --jobs N        worker count (0 = detected cores)
  -u, --ungroup       do not reorder output
  -n, --no-shell      exec directly instead of via a shell
  -p, --pipe          feed each input record's fields to the child's stdin
  -q, --quote         shell-quote expanded placeholders
  -s, --silent        drop child stdout
  -v, --verbose       log spawns to stderr
      --delay D       seconds between spawns
      --timeout T     per-job wall-clock timeout in seconds
      --memfree M     pause spawns below M bytes free (K/M/G suffix)
      --maxload L     pause spawns above load average L
      --tmpdir PATH   base directory for the temp workspace
      --joblog PATH   write a fixed-width accounting log
      --stats-addr A  serve live counters at http://A/stats
      --resume        skip job indices already recorded as completed
      --dry-run       print the expanded command instead of running it
      --num-cpu-cores print detected core count and exit`
