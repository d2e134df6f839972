package patch

import (
	"bytes"
	"testing"

	"github.com/beevik/etree"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sdkProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <Version>0.0.1</Version>
  </PropertyGroup>
  <PropertyGroup Condition="'$(Configuration)'=='Release'">
    <Optimize>true</Optimize>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Serilog" Version="3.1.1" />
  </ItemGroup>
</Project>
`

func readGroup(t *testing.T, content []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(bytes.TrimPrefix(content, utf8BOM)))
	return doc.Root().SelectElements("PropertyGroup")[0]
}

func TestSetVersionWritesThreeFields(t *testing.T) {
	out, err := SetVersion([]byte(sdkProject), version.MustParse("1.4.2-beta.1+abc1234"))
	require.NoError(t, err)

	group := readGroup(t, out)
	assert.Equal(t, "1.4.2-beta.1+abc1234", group.SelectElement("Version").Text())
	assert.Equal(t, "1.4.0.0", group.SelectElement("AssemblyVersion").Text())
	assert.Equal(t, "1.4.2.0", group.SelectElement("FileVersion").Text())
	assert.Equal(t, "net8.0", group.SelectElement("TargetFramework").Text())
	assert.Len(t, group.SelectElements("Version"), 1)

	s := string(out)
	assert.Contains(t, s, `<PackageReference Include="Serilog" Version="3.1.1"/>`)
	assert.Contains(t, s, "\n  <PropertyGroup>\n    <TargetFramework>")
	assert.Contains(t, s, `<Optimize>true</Optimize>`)
	assert.NotContains(t, s, "<Optimize>true</Optimize>\n    <Version>")
}

func TestSetVersionKeepsByteOrderMark(t *testing.T) {
	content := append(append([]byte{}, utf8BOM...), sdkProject...)
	out, err := SetVersion(content, version.MustParse("2.0.0"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "2.0.0", readGroup(t, out).SelectElement("Version").Text())
}

func TestSetVersionRequiresPrimaryGroup(t *testing.T) {
	content := `<Project><PropertyGroup Condition="true"><A>1</A></PropertyGroup></Project>`
	_, err := SetVersion([]byte(content), version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrNoPropertyGroup)

	_, err = SetVersion([]byte(`<Project/>`), version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrNoPropertyGroup)
}

func TestSetVersionRejectsAmbiguousGroups(t *testing.T) {
	content := `<Project><PropertyGroup><A>1</A></PropertyGroup><PropertyGroup><B>2</B></PropertyGroup></Project>`
	_, err := SetVersion([]byte(content), version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrAmbiguousPropertyGroup)
}

func TestSetVersionRejectsMalformedDocument(t *testing.T) {
	_, err := SetVersion([]byte(`<Project><PropertyGroup>`), version.MustParse("1.0.0"))
	require.Error(t, err)
}

func TestStampedVersion(t *testing.T) {
	raw, err := StampedVersion([]byte(sdkProject))
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", raw)

	raw, err = StampedVersion([]byte("<Project><PropertyGroup><Nullable>enable</Nullable></PropertyGroup></Project>"))
	require.NoError(t, err)
	assert.Empty(t, raw)

	_, err = StampedVersion([]byte("<Project/>"))
	assert.ErrorIs(t, err, ErrNoPropertyGroup)
}
