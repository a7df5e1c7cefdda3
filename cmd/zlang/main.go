package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	zlang "github.com/lufie0509z/zlang"
)

const (
	appName     = "zlang"
	historyFile = ".zlang_history"
	promptMain  = "ready> "
	promptCont  = "...... "
)

var banner = fmt.Sprintf("zlang %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", zlang.Version)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "lex":
		os.Exit(cmdLex(os.Args[2:]))
	case "version":
		fmt.Println(zlang.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`zlang %s (built %s)

Usage:
  %s run [--watch] <file.zl>   Parse and evaluate a script.
  %s repl                      Start the REPL.
  %s lex <file.zl>             Dump the token stream of a script.
  %s version                   Print the compiled version.

`, zlang.Version, zlang.BuildDate, appName, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "re-run the file every time it changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [--watch] <file.zl>\n", appName)
		return 2
	}
	file := fs.Arg(0)

	if !*watch {
		return runFile(file)
	}

	runFile(file)
	fmt.Fprintf(os.Stderr, "%s: watching %s (Ctrl+C to stop)\n", appName, file)

	closer, err := zlang.WatchFile(file, func() {
		fmt.Fprintf(os.Stderr, "%s: %s changed, re-running\n", appName, file)
		runFile(file)
	}, func(err error) {
		fmt.Fprintln(os.Stderr, red(err.Error()))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer closer.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	return 0
}

// runFile parses and evaluates one script with a fresh backend.
func runFile(file string) int {
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}

	sess := zlang.NewSession(zlang.NewInterp())
	sess.OnError = func(err error) {
		fmt.Fprintln(os.Stderr, red(zlang.WrapErrorWithName(err, file, string(src)).Error()))
	}
	sess.OnValue = func(v float64) {
		fmt.Printf("%g\n", v)
	}

	if failures := sess.Run(strings.NewReader(string(src))); failures > 0 {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	sess := zlang.NewSession(zlang.NewInterp())
	var current string
	sess.OnError = func(err error) {
		fmt.Fprintln(os.Stderr, red(zlang.WrapErrorWithName(err, "<repl>", current).Error()))
	}
	sess.OnValue = func(v float64) {
		fmt.Println(green(fmt.Sprintf("=> %g", v)))
	}
	sess.OnNode = func(node zlang.Node) {
		// Echo definitions and externs; bare expressions answer via OnValue.
		if fn, ok := node.(*zlang.Function); ok && fn.Anon() {
			return
		}
		fmt.Println(blue(node.String()))
	}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			switch strings.TrimSpace(strings.ToLower(code)) {
			case ":quit":
				return 0
			default:
				fmt.Printf("unknown command. Type :quit to exit.\n")
			}
			continue
		}

		if strings.TrimSpace(code) == "" {
			continue
		}

		current = code
		sess.Run(strings.NewReader(code))
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByParseProbe accumulates lines until they form a complete program:
// after each line the whole buffer is re-parsed, and while the only problem
// is truncated input the prompt switches to a continuation prompt.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		perr := zlang.Check(src, true)
		if perr == nil {
			return src, true
		}
		if zlang.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

// -----------------------------------------------------------------------------
// lex
// -----------------------------------------------------------------------------

func cmdLex(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s lex <file.zl>\n", appName)
		return 2
	}
	file := args[0]

	src, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}
	defer src.Close()

	lex := zlang.NewLexer(src)
	ret := 0
	for {
		tok, err := lex.NextToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			ret = 1
			continue
		}
		if tok.Type == zlang.EOF {
			return ret
		}
		switch tok.Type {
		case zlang.NUMBER:
			fmt.Printf("%s  %-10s %g\n", tok.Pos(), tok.Type, tok.Num)
		case zlang.SYMBOL:
			fmt.Printf("%s  %-10s %q\n", tok.Pos(), tok.Type, tok.Lexeme)
		default:
			fmt.Printf("%s  %-10s %s\n", tok.Pos(), tok.Type, tok.Lexeme)
		}
	}
}
