// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"fmt"
	"sync"
	"testing"

	"github.com/marcelocantos/auditsum/internal/parse"
)

func TestMatch(t *testing.T) {
	line := `type=SYSCALL pid=42 uid=0 comm="cat" exe="/usr/bin/cat"`
	tests := []struct {
		expr string
		want bool
	}{
		{`type == "SYSCALL"`, true},
		{`type == "PATH"`, false},
		{`uid == 0 and pid > 40`, true},
		{`file == None`, true},
		{`exe != None and exe.startswith("/usr/bin/")`, true},
		{`subject == "/usr/bin/cat"`, true},
		{`comm in ("bash", "sh")`, false},
		{`pid`, true},
		{`ses`, false},
	}
	r := parse.ParseLine(line)
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			got, err := f.Match(r)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileSyntaxError(t *testing.T) {
	if _, err := Compile(`type == `); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestMatchRuntimeError(t *testing.T) {
	f, err := Compile(`file.startswith("/etc")`)
	if err != nil {
		t.Fatal(err)
	}
	// file is None here, which has no startswith.
	if _, err := f.Match(parse.ParseLine("pid=1")); err == nil {
		t.Fatal("expected evaluation error")
	}
}

func TestMatchUnknownName(t *testing.T) {
	f, err := Compile(`syscall == "59"`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Match(parse.ParseLine("syscall=59")); err == nil {
		t.Fatal("expected undefined name error")
	}
}

func TestMatchConcurrent(t *testing.T) {
	f, err := Compile(`uid == 0 and comm != None`)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r := parse.ParseLine(fmt.Sprintf("comm=c%d uid=%d", g, i%2))
				ok, err := f.Match(r)
				if err != nil {
					errs <- err
					return
				}
				if ok != (i%2 == 0) {
					errs <- fmt.Errorf("goroutine %d line %d: match = %v", g, i, ok)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
