package patch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// Format is a patch file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	Lua  Format = "lua"
)

// luaTimeout bounds how long a patch script may run.
const luaTimeout = 2 * time.Second

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".lua":
		return Lua, nil
	}
	return "", fmt.Errorf("%w: unknown patch file type %q", ErrInvalidPatch, path)
}

// Load reads, validates and clamps a patch file.
func Load(path string) (Patch, error) {
	f, err := FormatOf(path)
	if err != nil {
		return Patch{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Patch{}, fmt.Errorf("read patch: %w", err)
	}
	return Decode(data, f)
}

// Decode parses data in format f. Every field of the schema must be
// present; unknown fields are rejected.
func Decode(data []byte, f Format) (Patch, error) {
	var w wirePatch
	switch f {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&w); err != nil {
			return Patch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&w); err != nil {
			return Patch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
	case Lua:
		js, err := evalLua(string(data))
		if err != nil {
			return Patch{}, err
		}
		return Decode(js, JSON)
	default:
		return Patch{}, fmt.Errorf("%w: unknown format %q", ErrInvalidPatch, f)
	}
	p, err := w.patch()
	if err != nil {
		return Patch{}, err
	}
	if err := Validate(p); err != nil {
		return Patch{}, err
	}
	return Clamp(p), nil
}

// Save writes p to path in the format its extension names.
func Save(path string, p Patch) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create patch: %w", err)
	}
	if err := Encode(file, p, f); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Encode writes p to w in format f.
func Encode(w io.Writer, p Patch, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case Lua:
		_, err := io.WriteString(w, luaSource(p))
		return err
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidPatch, f)
}

// wirePatch mirrors Patch with pointers so missing fields can be told apart
// from zero values.
type wirePatch struct {
	Osc *struct {
		Wave *string  `json:"wave" yaml:"wave"`
		Freq *float64 `json:"freq" yaml:"freq"`
	} `json:"osc" yaml:"osc"`
	Filter *struct {
		Type   *string  `json:"type" yaml:"type"`
		Cutoff *float64 `json:"cutoff" yaml:"cutoff"`
		Q      *float64 `json:"q" yaml:"q"`
	} `json:"filter" yaml:"filter"`
	Env *struct {
		Attack  *float64 `json:"attack" yaml:"attack"`
		Decay   *float64 `json:"decay" yaml:"decay"`
		Sustain *float64 `json:"sustain" yaml:"sustain"`
		Release *float64 `json:"release" yaml:"release"`
	} `json:"env" yaml:"env"`
	MasterGain *float64 `json:"masterGain" yaml:"masterGain"`
}

func (w wirePatch) patch() (Patch, error) {
	var missing []string
	str := func(name string, v *string) string {
		if v == nil {
			missing = append(missing, name)
			return ""
		}
		return *v
	}
	num := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	var p Patch
	if w.Osc == nil {
		missing = append(missing, "osc")
	} else {
		p.Osc = Osc{Wave: str("osc.wave", w.Osc.Wave), Freq: num("osc.freq", w.Osc.Freq)}
	}
	if w.Filter == nil {
		missing = append(missing, "filter")
	} else {
		p.Filter = Filter{
			Type:   str("filter.type", w.Filter.Type),
			Cutoff: num("filter.cutoff", w.Filter.Cutoff),
			Q:      num("filter.q", w.Filter.Q),
		}
	}
	if w.Env == nil {
		missing = append(missing, "env")
	} else {
		p.Env = Env{
			Attack:  num("env.attack", w.Env.Attack),
			Decay:   num("env.decay", w.Env.Decay),
			Sustain: num("env.sustain", w.Env.Sustain),
			Release: num("env.release", w.Env.Release),
		}
	}
	p.MasterGain = num("masterGain", w.MasterGain)
	if len(missing) > 0 {
		return Patch{}, fmt.Errorf("%w: missing %s", ErrInvalidPatch, strings.Join(missing, ", "))
	}
	return p, nil
}

// evalLua runs a patch script with only the base, table, string and math
// libraries and returns the table it yields as JSON.
func evalLua(src string) ([]byte, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("lua %s library: %w", lib.name, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), luaTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("%w: lua: %v", ErrInvalidPatch, err)
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: lua script must return a table", ErrInvalidPatch)
	}
	v, err := luaValue(tbl, 0)
	if err != nil {
		return nil, err
	}
	js, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return js, nil
}

func luaValue(v lua.LValue, depth int) (any, error) {
	if depth > 8 {
		return nil, fmt.Errorf("%w: lua table nested too deeply", ErrInvalidPatch)
	}
	switch x := v.(type) {
	case lua.LString:
		return string(x), nil
	case lua.LNumber:
		return float64(x), nil
	case lua.LBool:
		return bool(x), nil
	case *lua.LTable:
		out := map[string]any{}
		var err error
		x.ForEach(func(k, val lua.LValue) {
			if err != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				err = fmt.Errorf("%w: lua table key %s is not a string", ErrInvalidPatch, k.String())
				return
			}
			out[string(key)], err = luaValue(val, depth+1)
		})
		return out, err
	}
	return nil, fmt.Errorf("%w: unsupported lua value %s", ErrInvalidPatch, v.Type().String())
}

func luaSource(p Patch) string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	var b strings.Builder
	b.WriteString("return {\n")
	fmt.Fprintf(&b, "  osc = { wave = %q, freq = %s },\n", p.Osc.Wave, num(p.Osc.Freq))
	fmt.Fprintf(&b, "  filter = { type = %q, cutoff = %s, q = %s },\n", p.Filter.Type, num(p.Filter.Cutoff), num(p.Filter.Q))
	fmt.Fprintf(&b, "  env = { attack = %s, decay = %s, sustain = %s, release = %s },\n",
		num(p.Env.Attack), num(p.Env.Decay), num(p.Env.Sustain), num(p.Env.Release))
	fmt.Fprintf(&b, "  masterGain = %s,\n", num(p.MasterGain))
	b.WriteString("}\n")
	return b.String()
}
