package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"socialhub/docs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	compatBase     string
	compatRevision string

	apiCompatCmd = &cobra.Command{
		Use:   "api-compat",
		Short: "fail when an OpenAPI revision removes paths, operations or response codes",
		Long: "Compares --base against --revision. Without --revision the document " +
			"compiled into this binary is used. JSON and YAML are both accepted.",
		RunE: runAPICompat,
	}
)

func init() {
	apiCompatCmd.Flags().StringVar(&compatBase, "base", "", "base swagger document")
	apiCompatCmd.Flags().StringVar(&compatRevision, "revision", "", "revision swagger document (default: built-in)")
	_ = apiCompatCmd.MarkFlagRequired("base")
}

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

type apiSpec struct {
	// path -> method -> response codes
	Paths map[string]map[string]map[string]struct{}
}

func runAPICompat(cmd *cobra.Command, _ []string) error {
	// #nosec G304: path comes from CLI flags in a dev tool
	baseRaw, err := os.ReadFile(compatBase)
	if err != nil {
		return fmt.Errorf("read base spec: %w", err)
	}
	base, err := parseAPISpec(baseRaw)
	if err != nil {
		return fmt.Errorf("parse base spec: %w", err)
	}

	revRaw := []byte(docs.SwaggerInfo.ReadDoc())
	if compatRevision != "" {
		// #nosec G304: path comes from CLI flags in a dev tool
		if revRaw, err = os.ReadFile(compatRevision); err != nil {
			return fmt.Errorf("read revision spec: %w", err)
		}
	}
	revision, err := parseAPISpec(revRaw)
	if err != nil {
		return fmt.Errorf("parse revision spec: %w", err)
	}

	issues := compareAPISpecs(base, revision)
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "- %s\n", issue)
		}
		return fmt.Errorf("backward compatibility check failed: %d issue(s)", len(issues))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "openapi compatibility check passed")
	return nil
}

// parseAPISpec reads the paths section of a swagger document. JSON parses
// as YAML, so one decoder serves both.
func parseAPISpec(raw []byte) (apiSpec, error) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return apiSpec{}, err
	}
	if doc.Paths == nil {
		return apiSpec{}, errors.New("missing top-level paths field")
	}

	spec := apiSpec{Paths: make(map[string]map[string]map[string]struct{})}
	for path, methods := range doc.Paths {
		ops := make(map[string]map[string]struct{})
		for method, node := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[m]; !ok {
				continue
			}
			var op struct {
				Responses map[string]yaml.Node `yaml:"responses"`
			}
			if err := node.Decode(&op); err != nil {
				return apiSpec{}, fmt.Errorf("%s %s: %w", strings.ToUpper(m), path, err)
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if c := strings.ToLower(strings.TrimSpace(code)); c != "" {
					codes[c] = struct{}{}
				}
			}
			ops[m] = codes
		}
		if len(ops) > 0 {
			spec.Paths[path] = ops
		}
	}
	return spec, nil
}

func compareAPISpecs(base, revision apiSpec) []string {
	var issues []string

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseCodes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseCodes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
