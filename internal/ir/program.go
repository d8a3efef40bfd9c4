package ir

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ProgramFile is the on-disk shape of a program: a list of types.
type ProgramFile struct {
	Types []TypeDecl `toml:"type" yaml:"types"`
}

type TypeDecl struct {
	Name    string       `toml:"name" yaml:"name"`
	Kind    string       `toml:"kind" yaml:"kind"` // class | interface
	Fields  []FieldDecl  `toml:"field" yaml:"fields"`
	Methods []MethodDecl `toml:"method" yaml:"methods"`
}

type FieldDecl struct {
	Name string `toml:"name" yaml:"name"`
	Init string `toml:"init" yaml:"init"`
}

type MethodDecl struct {
	Name   string   `toml:"name" yaml:"name"`
	Params []string `toml:"params" yaml:"params"`
	// Body is an s-expression; empty means abstract.
	Body string `toml:"body" yaml:"body"`
}

// ErrEmptyProgram is returned for a program without types.
var ErrEmptyProgram = errors.New("program declares no types")

// LoadProgram reads a .toml, .yaml or .yml program file.
func LoadProgram(path string) ([]*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	units, err := DecodeProgram(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return units, nil
}

// DecodeProgram parses program data; ext selects the syntax (".toml",
// ".yaml", ".yml").
func DecodeProgram(data []byte, ext string) ([]*Unit, error) {
	var pf ProgramFile
	switch strings.ToLower(ext) {
	case ".toml", "":
		meta, err := toml.Decode(string(data), &pf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&pf); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported program format %q", ext)
	}
	return pf.Build()
}

// Build converts the declarations into units. Syntax errors in bodies
// and initialisers are collected for every type.
func (pf *ProgramFile) Build() ([]*Unit, error) {
	if len(pf.Types) == 0 {
		return nil, ErrEmptyProgram
	}
	var errs []error
	units := make([]*Unit, 0, len(pf.Types))
	for _, td := range pf.Types {
		t, err := td.node()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, NewUnit(t))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return units, nil
}

func (td TypeDecl) node() (*Node, error) {
	t := &Node{Kind: KindType, Name: strings.TrimSpace(td.Name)}
	switch strings.ToLower(strings.TrimSpace(td.Kind)) {
	case "", "class":
	case "interface":
		t.Interface = true
	default:
		return nil, fmt.Errorf("type %q: unknown kind %q", td.Name, td.Kind)
	}

	var errs []error
	for _, fd := range td.Fields {
		f := &Node{Kind: KindField, Name: strings.TrimSpace(fd.Name)}
		if strings.TrimSpace(fd.Init) != "" {
			init, err := ParseExpr(fd.Init)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: init: %w", td.Name, fd.Name, err))
				continue
			}
			f.Children = []*Node{init}
		}
		t.Children = append(t.Children, f)
	}
	for _, md := range td.Methods {
		m := &Node{Kind: KindMethod, Name: strings.TrimSpace(md.Name), Params: md.Params}
		if strings.TrimSpace(md.Body) != "" {
			body, err := ParseBody(md.Body)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: body: %w", td.Name, md.Name, err))
				continue
			}
			m.Children = []*Node{body}
		}
		t.Children = append(t.Children, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}
