// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PythonNotFoundId Id = iota + 1
	ManifestNotFoundId
	ManifestParseErrorId
	EntryPointNotFoundId
	DependencyInstallFailedId
	EntryPointDefectId
	BundlingFailedId
	ConfigLoadFailedId
	PermissionDeniedId
	DiskFullId
	BuildInterruptedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue Markdown with the given glamour style ("dark", "light", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	pythonNotFoundIssue = &Issue{
		id: PythonNotFoundId,
		mdMsg: `
# Python interpreter not found!

The build installs dependencies with pip and bundles with PyInstaller, so a
Python interpreter must be on your PATH before you run it.

## Things you can try:
- Install Python 3 from your package manager or https://www.python.org/downloads/
- On Windows, tick "Add python.exe to PATH" in the installer
- Point the build at a specific interpreter in ` + "`packager.cue`" + `:
~~~cue
python: "/usr/local/bin/python3.12"
~~~`,
		extLinks: []HttpLink{"https://www.python.org/downloads/"},
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Dependency manifest not found!

The build reads the packages to install from the project's manifest
(` + "`requirements.txt`" + ` by default).

## Things you can try:
- Run the build from the project root
- Create the manifest:
~~~
requests
Pillow
~~~
- Or point ` + "`manifest`" + ` in ` + "`packager.cue`" + ` at your ` + "`pyproject.toml`",
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the dependency manifest!

A line in the manifest is not a valid requirement.

## Things you can try:
- Check the line reported above
- Use the ` + "`name[extras] <specifier> ; <marker>`" + ` form, e.g. ` + "`requests>=2.31`",
		extLinks: []HttpLink{"https://pip.pypa.io/en/stable/reference/requirements-file-format/"},
	}

	entryPointNotFoundIssue = &Issue{
		id: EntryPointNotFoundId,
		mdMsg: `
# Entry-point script not found!

The script to bundle does not exist.

## Things you can try:
- Run the build from the project root
- Set ` + "`entry_point`" + ` in ` + "`packager.cue`" + ` to the script that starts your application`,
	}

	dependencyInstallFailedIssue = &Issue{
		id: DependencyInstallFailedId,
		mdMsg: `
# Installing dependencies failed!

pip could not install every declared package, so nothing was bundled.

## Common causes:
- No network access to the package index
- A declared package or version does not exist
- No permission to install into the current environment

## Things you can try:
- Read the pip output above for the failing requirement
- Use a virtual environment:
~~~
$ python -m venv .venv && . .venv/bin/activate
~~~
- Fix the manifest and run the build again`,
		extLinks: []HttpLink{"https://pip.pypa.io/en/stable/user_guide/"},
	}

	entryPointDefectIssue = &Issue{
		id: EntryPointDefectId,
		mdMsg: `
# The entry-point script does not compile!

Bundling stopped before PyInstaller ran. Any previously built artifact was
left in place.

## Things you can try:
- Fix the syntax error reported above
- Check it locally:
~~~
$ python -m py_compile app.py
~~~`,
	}

	bundlingFailedIssue = &Issue{
		id: BundlingFailedId,
		mdMsg: `
# Bundling failed!

PyInstaller did not produce the artifact. Any previously built artifact was
left in place.

## Things you can try:
- Read the PyInstaller output above
- Make sure every import used by the script is declared in the manifest
- Remove intermediate files and rebuild:
~~~
$ packager clean && packager build
~~~`,
		extLinks: []HttpLink{"https://pyinstaller.org/en/stable/when-things-go-wrong.html"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the build configuration!

## Things you can try:
- Check the CUE syntax of ` + "`packager.cue`" + `
- Print the defaults:
~~~
$ packager config show
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Common causes:
- The output directory is not writable
- The previous artifact is still running (Windows locks running executables)
- pip tried to write to a system site-packages directory

## Things you can try:
- Close the running application and rebuild
- Install into a virtual environment or pass ` + "`--user`" + ` via ` + "`install.extra_args`",
	}

	diskFullIssue = &Issue{
		id: DiskFullId,
		mdMsg: `
# Not enough disk space!

Single-file bundles embed the whole Python runtime and can take hundreds of
megabytes while being built.

## Things you can try:
- Free up space and rebuild
- Run ` + "`packager clean`" + ` to drop old intermediate files`,
	}

	buildInterruptedIssue = &Issue{
		id: BuildInterruptedId,
		mdMsg: `
# Build interrupted!

The build was stopped before it finished. The artifact from the previous
successful build, if any, was left in place. Run the whole build again.`,
	}

	issues = map[Id]*Issue{
		pythonNotFoundIssue.Id():          pythonNotFoundIssue,
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		entryPointNotFoundIssue.Id():      entryPointNotFoundIssue,
		dependencyInstallFailedIssue.Id(): dependencyInstallFailedIssue,
		entryPointDefectIssue.Id():        entryPointDefectIssue,
		bundlingFailedIssue.Id():          bundlingFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
		diskFullIssue.Id():                diskFullIssue,
		buildInterruptedIssue.Id():        buildInterruptedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
