package pipeline

import (
	"fmt"
	"strings"

	"anglestudio/internal/domain"
)

// BuildConsistencyInstruction renders the specification and target angle into
// the strict instruction block used for every non-canonical generation call.
// It is a pure function: identical inputs yield byte-identical output.
//
// Sections with no extracted data are omitted entirely; the instruction never
// claims "use colors: []".
func BuildConsistencyInstruction(spec domain.DesignSpec, angle string) string {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "You are shown the SAME physical object that appears in the attached canonical image. ")
	fmt.Fprintf(sb, "Generate it from the %s viewpoint. Only the camera angle changes; ", angle)
	sb.WriteString("the object itself must be an exact replica of the canonical image.\n")

	var must []string
	appendList := func(label string, values []string) {
		if len(values) == 0 {
			return
		}
		must = append(must, fmt.Sprintf("- %s: %s", label, strings.Join(values, ", ")))
	}
	appendList("Primary colors", spec.PrimaryColors)
	appendList("Secondary colors", spec.SecondaryColors)
	appendList("Patterns", spec.Patterns)
	appendList("Textures", spec.Textures)
	appendList("Materials", spec.Materials)
	appendList("Branding elements", spec.BrandingElements)
	appendList("Decorative elements", spec.DecorativeElements)
	appendList("Structural features", spec.StructuralFeatures)
	if style := strings.TrimSpace(spec.OverallStyle); style != "" && style != domain.EmptySpecStyle {
		must = append(must, "- Overall style: "+style)
	}

	if len(must) > 0 {
		sb.WriteString("\nMUST USE (replicate each element exactly as listed):\n")
		sb.WriteString(strings.Join(must, "\n"))
		sb.WriteString("\n")
	}

	sb.WriteString("\nFORBIDDEN:\n")
	sb.WriteString("- Substituting, translating or renaming any color\n")
	sb.WriteString("- Adding patterns or decorative elements not present in the canonical image\n")
	sb.WriteString("- Removing or simplifying any pattern, texture or decorative element\n")
	sb.WriteString("- Changing any material or its finish\n")
	sb.WriteString("- Moving, resizing, restyling or omitting branding or logos\n")
	sb.WriteString("- Altering the object's structure, proportions or construction\n")

	sb.WriteString("\nBefore returning the image, verify each point:\n")
	sb.WriteString("1. Is this recognizably the same object as the canonical image?\n")
	sb.WriteString("2. Does every listed element appear exactly as specified?\n")
	sb.WriteString("3. Is the ONLY difference the camera viewpoint?\n")
	sb.WriteString("If any answer is no, correct the image before returning it.")

	return sb.String()
}

// CameraGuidance describes the target viewpoint for the model. Unknown labels
// get a generic instruction built from the label itself, so user-defined angle
// names still work.
func CameraGuidance(angle string) string {
	switch strings.ToLower(strings.TrimSpace(angle)) {
	case "top":
		return "Camera view: directly above the object, looking straight down, the upper surface fully visible."
	case "bottom":
		return "Camera view: from below, showing the underside of the object; the top surface must not be visible."
	case "side":
		return "Camera view: full side profile at object height; the front face must not be visible."
	case "45-degree":
		return "Camera view: three-quarter view at 45 degrees, with about 3/4 of the front and 1/4 of the side visible."
	case "front":
		return "Camera view: the front face directly facing the camera at object height."
	case "back":
		return "Camera view: the complete back of the object; the front must not be visible at all."
	default:
		return fmt.Sprintf("Camera view: show the object from the %q viewpoint.", strings.TrimSpace(angle))
	}
}
