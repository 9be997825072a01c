package script

import "github.com/dop251/goja"

// apiNames lists the script API globals, stubbed out and skipped by
// ListFunctions.
var apiNames = map[string]bool{
	"now": true, "wait": true, "request": true,
	"release": true, "spawn": true, "log": true,
}

// ListFunctions compiles source in a disposable VM (with inert stubs for
// the script API, so top-level code referencing them doesn't throw) and
// returns the names of every top-level callable it defines. The kernel
// uses this to resolve spawn()'s fn_name against whichever previously
// loaded script source actually defines it, since a single script file may
// define more than one entry function (e.g. a parent and the children it
// spawns).
func ListFunctions(source string) ([]string, error) {
	rt := goja.New()
	stub := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for name := range apiNames {
		if err := rt.Set(name, stub); err != nil {
			return nil, err
		}
	}
	if _, err := rt.RunString(source); err != nil {
		return nil, err
	}

	global := rt.GlobalObject()
	var names []string
	for _, key := range global.Keys() {
		if apiNames[key] {
			continue
		}
		val := global.Get(key)
		if val == nil || goja.IsUndefined(val) {
			continue
		}
		if _, ok := goja.AssertFunction(val); ok {
			names = append(names, key)
		}
	}
	return names, nil
}
