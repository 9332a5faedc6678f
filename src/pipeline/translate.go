package pipeline

// Placeholder values in plugin args that resolve against the workflow
// at instantiation time, so descriptors can reference build state that
// does not exist yet when the descriptor is written.
const (
	ArgBuiltImageID        = "BUILT_IMAGE_ID"
	ArgBuildSourcePath     = "BUILD_SOURCE_PATH"
	ArgBuildDockerfilePath = "BUILD_DOCKERFILE_PATH"
	ArgBaseImage           = "BASE_IMAGE"
)

// TranslateArgs returns a copy of args with placeholder string values
// resolved against the workflow. Placeholders that cannot resolve yet
// pass through unchanged; the plugin decides whether that is an error.
func TranslateArgs(w *Workflow, args map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}

	out := make(map[string]any, len(args))
	for key, value := range args {
		str, ok := value.(string)
		if !ok {
			out[key] = value
			continue
		}
		out[key] = translateArg(w, str)
	}
	return out
}

func translateArg(w *Workflow, value string) string {
	switch value {
	case ArgBuiltImageID:
		if w.Builder != nil && w.Builder.ImageID() != "" {
			return w.Builder.ImageID()
		}
	case ArgBuildSourcePath:
		if w.Builder != nil {
			return w.Builder.DockerfileDir
		}
	case ArgBuildDockerfilePath:
		if w.Builder != nil {
			return w.Builder.DockerfilePath
		}
	case ArgBaseImage:
		if w.Builder != nil {
			return w.Builder.BaseImage.String()
		}
	}
	return value
}
