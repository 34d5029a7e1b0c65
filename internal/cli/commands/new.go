package commands

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/designspace"
	"github.com/fontmill/fontmill/internal/ufo"
)

var familyNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// weightClasses maps conventional style names to OS/2 weight classes.
// Unlisted styles scaffold at Regular and are adjusted by hand.
var weightClasses = map[string]float64{
	"Thin":       100,
	"ExtraLight": 200,
	"Light":      300,
	"Regular":    400,
	"Medium":     500,
	"SemiBold":   600,
	"Bold":       700,
	"ExtraBold":  800,
	"Black":      900,
}

// NewNewCommand creates the new command
func NewNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new [family-name]",
		Short: "Scaffold a new font project",
		Long: `Create a new font project: configuration, VERSION file, designspace
skeleton, one empty UFO package per weight, per-weight SVG import
stubs and a proof corpus placeholder.

If no family name is provided, you will be prompted for one.

Example:
  fontmill new Sundar`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNew,
	}
}

func validateFamilyName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("family name must be 1-100 characters")
	}
	if !familyNameRe.MatchString(name) {
		return fmt.Errorf("family name can only contain letters, numbers, dashes, and underscores")
	}
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	var family string
	if len(args) > 0 {
		family = args[0]
	} else {
		prompt := &survey.Input{Message: "Family name:"}
		if err := survey.AskOne(prompt, &family, survey.WithValidator(func(v interface{}) error {
			return validateFamilyName(v.(string))
		})); err != nil {
			return err
		}
	}
	if err := validateFamilyName(family); err != nil {
		return err
	}

	if _, err := os.Stat(family); err == nil {
		return fmt.Errorf("directory %s already exists", family)
	}

	var weightsAnswer string
	if err := survey.AskOne(&survey.Input{
		Message: "Weights (comma separated):",
		Default: "Regular,Bold",
	}, &weightsAnswer); err != nil {
		return err
	}
	weights := splitWeights(weightsAnswer)
	if len(weights) == 0 {
		return fmt.Errorf("at least one weight is required")
	}

	var upmAnswer string
	if err := survey.AskOne(&survey.Input{
		Message: "Units per em:",
		Default: "1000",
	}, &upmAnswer); err != nil {
		return err
	}
	upm, err := strconv.Atoi(strings.TrimSpace(upmAnswer))
	if err != nil || upm <= 0 {
		return fmt.Errorf("units per em must be a positive integer")
	}

	if err := scaffoldProject(family, weights, upm); err != nil {
		return err
	}

	successColor.Fprintf(cmd.OutOrStdout(), "✓ Created project %s\n", family)
	infoColor.Fprintf(cmd.OutOrStdout(), `
Next steps:
  cd %s
  # drop SVG drawings into sources/svgs/<weight>/
  # list them in sources/svgs/<weight>.yaml
  fontmill glyphs
  fontmill build
`, family)
	return nil
}

func splitWeights(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		w = strings.TrimSpace(w)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// scaffoldProject writes the full project skeleton under a directory
// named after the family.
func scaffoldProject(family string, weights []string, upm int) error {
	root := family
	sources := filepath.Join(root, "sources")
	svgs := filepath.Join(sources, "svgs")

	for _, dir := range []string{sources, svgs, filepath.Join(root, "tests")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// fontmill.yaml
	var cfg strings.Builder
	fmt.Fprintf(&cfg, "family: %s\n", family)
	fmt.Fprintf(&cfg, "weights: [%s]\n", strings.Join(weights, ", "))
	fmt.Fprintf(&cfg, "designspace: sources/%s.designspace\n", family)
	if err := os.WriteFile(filepath.Join(root, "fontmill.yaml"), []byte(cfg.String()), 0o644); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(root, "VERSION"), []byte("1.0\n"), 0o644); err != nil {
		return err
	}

	if err := writeDesignspace(filepath.Join(sources, family+".designspace"), family, weights); err != nil {
		return err
	}

	for _, weight := range weights {
		ufoPath := filepath.Join(sources, family+"-"+weight+".ufo")
		if _, err := ufo.Init(ufoPath, family, weight, upm); err != nil {
			return err
		}

		lower := strings.ToLower(weight)
		if err := os.MkdirAll(filepath.Join(svgs, lower), 0o755); err != nil {
			return err
		}

		stub := fmt.Sprintf(`font:
  ufo: ../%s-%s.ufo
  transform: 1 0 0 -1 0 0
  version: 2
svgs: {}
  # ka:
  #   glyph_name: ka
  #   unicode: "0d15"
  #   left: 20
  #   right: 20
`, family, weight)
		if err := os.WriteFile(filepath.Join(svgs, lower+".yaml"), []byte(stub), 0o644); err != nil {
			return err
		}
	}

	corpus := "Add one line of sample text per row; proof sheets shape each line.\n"
	return os.WriteFile(filepath.Join(root, "tests", "sample.txt"), []byte(corpus), 0o644)
}

// writeDesignspace emits a single-axis weight designspace with one
// source per weight.
func writeDesignspace(path, family string, weights []string) error {
	doc := designspace.Document{
		Format: "4.1",
		Axes: []designspace.Axis{{
			Tag: "wght", Name: "Weight",
			Minimum: 100, Maximum: 900, Default: 400,
		}},
	}
	for _, weight := range weights {
		class, ok := weightClasses[weight]
		if !ok {
			class = 400
		}
		doc.Sources = append(doc.Sources, designspace.Source{
			Filename:   family + "-" + weight + ".ufo",
			FamilyName: family,
			StyleName:  weight,
			Location:   []designspace.Dimension{{Name: "Weight", XValue: class}},
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out := []byte(xml.Header + string(data) + "\n")
	return os.WriteFile(path, out, 0o644)
}
