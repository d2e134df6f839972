package patch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/bgricker/relbuild/internal/version"
)

var (
	// ErrNoPropertyGroup indicates a project file without an unconditioned PropertyGroup.
	ErrNoPropertyGroup = errors.New("project has no primary PropertyGroup")
	// ErrAmbiguousPropertyGroup indicates more than one unconditioned PropertyGroup.
	ErrAmbiguousPropertyGroup = errors.New("project has more than one primary PropertyGroup")
)

const (
	propertyGroupTag = "PropertyGroup"
	conditionAttr    = "Condition"
	indentSpaces     = 2
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Fields returns the version properties written into a project for v.
func Fields(v version.SemanticVersion) [][2]string {
	return [][2]string{
		{"Version", v.String()},
		{"AssemblyVersion", v.AssemblyVersion()},
		{"FileVersion", v.FileVersion()},
	}
}

// SetVersion rewrites the version properties of the primary PropertyGroup in
// the project document held by content. Existing properties are updated in
// place; missing ones are appended. A leading byte order mark survives.
func SetVersion(content []byte, v version.SemanticVersion) ([]byte, error) {
	hasBOM := bytes.HasPrefix(content, utf8BOM)
	content = bytes.TrimPrefix(content, utf8BOM)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse project: %w", ErrNoPropertyGroup)
	}

	group, err := primaryPropertyGroup(root)
	if err != nil {
		return nil, err
	}
	for _, field := range Fields(v) {
		el := group.SelectElement(field[0])
		if el == nil {
			el = group.CreateElement(field[0])
		}
		el.SetText(field[1])
	}

	doc.Indent(indentSpaces)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize project: %w", err)
	}
	if hasBOM {
		out = append(append([]byte{}, utf8BOM...), out...)
	}
	return out, nil
}

// StampedVersion returns the Version property of the primary PropertyGroup,
// or "" when the project does not set one.
func StampedVersion(content []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimPrefix(content, utf8BOM)); err != nil {
		return "", fmt.Errorf("parse project: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("parse project: %w", ErrNoPropertyGroup)
	}
	group, err := primaryPropertyGroup(root)
	if err != nil {
		return "", err
	}
	el := group.SelectElement("Version")
	if el == nil {
		return "", nil
	}
	return el.Text(), nil
}

func primaryPropertyGroup(root *etree.Element) (*etree.Element, error) {
	var primary *etree.Element
	for _, group := range root.SelectElements(propertyGroupTag) {
		if group.SelectAttr(conditionAttr) != nil {
			continue
		}
		if primary != nil {
			return nil, ErrAmbiguousPropertyGroup
		}
		primary = group
	}
	if primary == nil {
		return nil, ErrNoPropertyGroup
	}
	return primary, nil
}
