// File: lixenwraith/sectcfg/convenience.go
package sectcfg

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
)

// Load resolves T from files with a default engine. This is the quickest way
// to read a single record.
func Load[T any](files ...string) (*T, error) {
	return ResolveAs[T](New(), FromFiles(files...))
}

// MustLoad is like Load but panics on error
func MustLoad[T any](files ...string) *T {
	v, err := Load[T](files...)
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	return v
}

// LoadList resolves T in list mode: one instance per matching section.
func LoadList[T any](files ...string) ([]*T, error) {
	e := New()
	rec, err := e.recordFor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	if rec.list == 0 {
		c := *rec
		c.list = 1
		rec = &c
	}
	res, err := e.Resolve(rec, FromFiles(files...))
	if err != nil {
		return nil, err
	}
	return AsSlice[T](res)
}

// LoadGroup resolves T as a group from files.
func LoadGroup[T any](files ...string) (*T, error) {
	rec, err := DefineGroup[T]()
	if err != nil {
		return nil, err
	}
	res, err := New().Resolve(rec, FromFiles(files...))
	if err != nil {
		return nil, err
	}
	return As[T](res)
}

// Debug returns a formatted summary of the registered records
func (e *Engine) Debug() string {
	records := e.Records()

	var b strings.Builder
	b.WriteString("Engine Debug Info:\n")
	fmt.Fprintf(&b, "Files: %v\n", e.files)
	b.WriteString("Records:\n")
	for _, name := range sortedKeys(records) {
		rec := records[name]
		fmt.Fprintf(&b, "  %s (%s):\n", name, rec.typ)
		fmt.Fprintf(&b, "    Loader: %s\n", rec.loader)
		if len(rec.sections) > 0 {
			fmt.Fprintf(&b, "    Sections: %v (regex: %t)\n", rec.sections, rec.useRegex)
		}
		if len(rec.files) > 0 {
			fmt.Fprintf(&b, "    Files: %v\n", rec.files)
		}
		fmt.Fprintf(&b, "    List: %d  Chain: %t  AllowEmpty: %t  Env: %t  Group: %t\n",
			rec.list, rec.chain, rec.allowEmpty, rec.evalEnv, rec.group)
		for _, f := range rec.fields {
			fmt.Fprintf(&b, "    - %s %s", f.Key, f.Type)
			if len(f.Aliases) > 0 {
				fmt.Fprintf(&b, " aliases=%v", f.Aliases)
			}
			if f.Required {
				b.WriteString(" required")
			}
			if f.Ignore {
				b.WriteString(" ignore")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Dump writes v to stdout in INI format
func (e *Engine) Dump(v any) error {
	return e.DumpTo(os.Stdout, v, FormatINI)
}

// DumpTo writes v to w in the given format
func (e *Engine) DumpTo(w io.Writer, v any, format Format) error {
	data, err := e.Marshal(v, format)
	if err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}
