package stageexec

import (
	"os"
	"strconv"
)

// expandArgs substitutes ${name} placeholders in provider arguments. Unknown
// placeholders are left untouched.
func expandArgs(args []string, vars map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = expand(arg, vars)
	}
	return out
}

func expand(value string, vars map[string]string) string {
	return os.Expand(value, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return "${" + name + "}"
	})
}

func placeholderVars(stageID string, inv Invocation, scratchDir, requestPath string) map[string]string {
	return map[string]string{
		"stage":        stageID,
		"project_id":   inv.ProjectID,
		"project_root": inv.ProjectRoot,
		"input":        inv.Params.Input,
		"duration_us":  strconv.FormatInt(inv.Params.DurationUs, 10),
		"model":        inv.Params.Model,
		"language":     inv.Params.Language,
		"sample_rate":  strconv.Itoa(inv.Params.SampleRate),
		"request":      requestPath,
		"scratch_dir":  scratchDir,
	}
}
