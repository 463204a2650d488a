package main

import (
	"bytes"
	"go/constant"
	"go/format"
	"go/types"
	"os"
	"strings"
	"text/template"

	"golang.org/x/tools/go/packages"
)

var tpl = template.Must(template.New("").Parse(`package supervise

// GENERATED FILE, DO NOT MODIFY

import "syscall"

var signalNames = map[syscall.Signal]string{
{{- range $name := . }}
	syscall.SIG{{ . }}: "{{ . }}",
{{- end }}
}
`))

func main() {
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedTypes}, "syscall")
	if err != nil {
		panic(err)
	}

	// Several names alias one number (IOT/ABRT, CLD/CHLD). Scope names are
	// sorted so the first name seen for a number wins.
	seen := map[int64]bool{}
	syms := []string{}
	scope := pkgs[0].Types.Scope()
	for _, n := range scope.Names() {
		o := scope.Lookup(n)
		if !strings.HasPrefix(n, "SIG") || o.Type().String() != "syscall.Signal" {
			continue
		}
		c, ok := o.(*types.Const)
		if !ok {
			continue
		}
		v, ok := constant.Int64Val(c.Val())
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		syms = append(syms, strings.TrimPrefix(n, "SIG"))
	}

	buf := bytes.Buffer{}
	if err := tpl.Execute(&buf, syms); err != nil {
		panic(err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("zzz_syscall_map.go", src, 0666); err != nil {
		panic(err)
	}
}
