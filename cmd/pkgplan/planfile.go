package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/expander"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// planCallPattern matches one anod_*(...) call, grounded on the plan-file
// syntax exercised by e3.anod.context's test suite: a primitive function
// name, a quoted spec name, and zero or more comma-separated kwargs.
//
//	anod_build("zlib")
//	anod_build("zlib", qualifier="static", build="x86-linux")
var planCallPattern = regexp.MustCompile(`^(anod_build|anod_install|anod_test|anod_source)\(\s*"([^"]+)"\s*(?:,\s*(.*))?\)\s*$`)

var planPrimitives = map[string]action.Primitive{
	"anod_build":   action.PrimitiveBuild,
	"anod_install": action.PrimitiveInstall,
	"anod_test":    action.PrimitiveTest,
	"anod_source":  action.PrimitiveSource,
}

// parseKwargs splits a `key="value", other=true` argument tail into a map.
// It is deliberately naive (no nested parens or escaped quotes): the plan
// DSL it reads is a narrow, machine-generated subset of the original
// language's anod_build(...) call syntax, not a general expression parser.
func parseKwargs(tail string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(tail) == "" {
		return out
	}
	for _, part := range strings.Split(tail, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		out[key] = val
	}
	return out
}

// parsePlanFile reads a plan file line by line and builds one PlanEntry per
// anod_*(...) call. Blank lines and lines starting with "#" are skipped.
// Each entry's Line is stamped "<path>:<lineno>", the plan-line token a
// scheduling error cites back to the caller, matching the original's
// plan_line identifiers (e.g. "plan.txt:2").
func parsePlanFile(path string) ([]expander.PlanEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan file %s: %w", path, err)
	}
	defer f.Close()

	var entries []expander.PlanEntry
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		m := planCallPattern.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: cannot parse plan entry %q", path, lineno, raw)
		}
		primitive, ok := planPrimitives[m[1]]
		if !ok {
			return nil, fmt.Errorf("%s:%d: unknown plan call %q", path, lineno, m[1])
		}
		kwargs := parseKwargs(m[3])

		entry := expander.PlanEntry{
			Name:      m[2],
			Primitive: primitive,
			Qualifier: kwargs["qualifier"],
			Env: specmodel.BaseEnv{
				Build:  kwargs["build"],
				Host:   kwargs["host"],
				Target: kwargs["target"],
			},
			Line: fmt.Sprintf("%s:%d", path, lineno),
		}
		if v, ok := kwargs["sources"]; ok {
			entry.SourcePackages, _ = strconv.ParseBool(v)
		}
		if v, ok := kwargs["upload"]; ok {
			entry.Upload, _ = strconv.ParseBool(v)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}
	return entries, nil
}
