// Package sh provides the interactive simulator shell.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rtloop/pkg/env"
	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/system"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Sim   *Sim
}

const (
	shellKey = "$shell"
	prompt   = "rtsim > "

	// cmdSeparator separates commands in evaluation mode.
	cmdSeparator = ";"
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PressCmd,
		&ReleaseCmd,
		&SendCmd,
		&EncryptCmd,
		&CounterCmd,
		&EdgesCmd,
		&StatusCmd,
		&SleepCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell around a Sim.
func New(sim *Sim) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Sim:   sim,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SplitCommands splits evaluation mode args into commands.
func SplitCommands(args []string) [][]string {
	var cmds [][]string
	var cur []string
	for _, arg := range args {
		for n, part := range strings.Split(arg, cmdSeparator) {
			if n > 0 && len(cur) > 0 {
				cmds = append(cmds, cur)
				cur = nil
			}
			if part = strings.TrimSpace(part); part != "" {
				cur = append(cur, part)
			}
		}
	}
	if len(cur) > 0 {
		cmds = append(cmds, cur)
	}
	return cmds
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run starts the Sim and runs the shell.
func (s *Shell) Run(args ...string) {
	s.Sim.Start(context.Background())
	defer s.Sim.Stop()

	if len(args) > 0 {
		for _, cmd := range SplitCommands(args) {
			if err := s.Shell.Process(cmd...); err != nil {
				log.Fatalln(err)
			}
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func intArg(c *ishell.Context, n, def int) (int, error) {
	if len(c.Args) <= n {
		return def, nil
	}
	val, err := strconv.Atoi(c.Args[n])
	if err != nil || val <= 0 {
		return 0, fmt.Errorf("invalid count %q", c.Args[n])
	}
	return val, nil
}

var (
	// PressCmd holds the button, or with a count, presses and
	// releases it that many times.
	PressCmd = ishell.Cmd{
		Name:    "press",
		Aliases: []string{"p"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			sim := ShellFrom(c).Sim
			if len(c.Args) == 0 {
				sim.Press()
				return
			}
			n, err := intArg(c, 0, 1)
			if err != nil {
				c.Err(err)
				return
			}
			sim.Pulse(n)
		},
	}

	// ReleaseCmd releases the button.
	ReleaseCmd = ishell.Cmd{
		Name:    "release",
		Aliases: []string{"r"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Sim.Release()
		},
	}

	// SendCmd feeds raw bytes to the serial port.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "HEX",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("hex bytes expected"))
				return
			}
			s := ShellFrom(c)
			n, err := s.Sim.Send(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, map[string]int{"sent": n}, fmt.Sprintf("%d bytes sent", n))
		},
	}

	// EncryptCmd encrypts text and feeds the block to the serial port.
	EncryptCmd = ishell.Cmd{
		Name:    "encrypt",
		Aliases: []string{"enc"},
		Help:    "TEXT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			block, err := s.Sim.Encrypt(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, map[string][]byte{"ciphertext": block}, observe.HexDump(block))
		},
	}

	// CounterCmd prints the shared counter.
	CounterCmd = ishell.Cmd{
		Name: "counter",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Sim.Status()
			text := fmt.Sprintf("Counter = %d", st.Counter)
			for _, task := range []string{system.TaskIncrementer, system.TaskDecrementer} {
				if r, ok := s.Sim.Latest.Get(task, observe.KindCounter); ok {
					text += "\n" + r.String()
				}
			}
			s.print(c, map[string]int32{"counter": st.Counter}, text)
		},
	}

	// EdgesCmd prints the edge counter and worker statistics.
	EdgesCmd = ishell.Cmd{
		Name: "edges",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Sim.Status()
			s.print(c, st, fmt.Sprintf("pending=%d wakes=%d drains=%d spurious=%d worker=%s",
				st.Edges, st.Wakes, st.Drains, st.Spurious, st.EdgeWorker))
		},
	}

	// StatusCmd prints the status of all tasks.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Sim.Status()
			text := fmt.Sprintf("tasks: %s", strings.Join(st.Tasks, " "))
			if len(st.Failed) > 0 {
				text += fmt.Sprintf("\nfailed: %s", strings.Join(st.Failed, " "))
			}
			text += fmt.Sprintf("\ncounter: %d\nedges: pending=%d worker=%s", st.Counter, st.Edges, st.EdgeWorker)
			if st.Pipeline != "" {
				text += fmt.Sprintf("\ndecrypt: %s blocks=%d buffered=%d overruns=%d",
					st.Pipeline, st.Blocks, st.Buffered, st.Overruns)
			}
			if st.Decrypted != "" {
				text += fmt.Sprintf("\nlast: %q", st.Decrypted)
			}
			s.print(c, st, text)
		},
	}

	// SleepCmd waits, useful between commands in evaluation mode.
	SleepCmd = ishell.Cmd{
		Name: "sleep",
		Help: "DURATION",
		Func: func(c *ishell.Context) {
			d := 100 * time.Millisecond
			if len(c.Args) > 0 {
				var err error
				if d, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			time.Sleep(d)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	sim, err := NewSim(env.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	New(sim).Run(flag.Args()...)
}
