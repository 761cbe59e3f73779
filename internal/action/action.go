// Package action defines the closed set of action variants the expander
// (C4) places into the DAG and the scheduler (C5) walks, plus the Decision
// node type used to represent a still-unresolved build-vs-download or
// create-vs-download choice.
//
// Dispatch over the variants is a type switch, not reflection: callers type
// switch on the concrete struct (or inspect Kind()) rather than the
// original system's "do_" + classname.lower() reflective method lookup.
package action

import "strings"

// Kind identifies which action variant a value holds.
type Kind int

const (
	KindRoot Kind = iota
	KindGetSource
	KindDownloadSource
	KindCreateSource
	KindCreateSources
	KindInstallSource
	KindCheckout
	KindBuild
	KindTest
	KindInstall
	KindDownloadBinary
	KindUpload
	KindUploadBinaryComponent
	KindUploadSourceComponent
	KindUploadSource
	KindDecision
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGetSource:
		return "get_source"
	case KindDownloadSource:
		return "download_source"
	case KindCreateSource:
		return "create_source"
	case KindCreateSources:
		return "create_sources"
	case KindInstallSource:
		return "install_source"
	case KindCheckout:
		return "checkout"
	case KindBuild:
		return "build"
	case KindTest:
		return "test"
	case KindInstall:
		return "install"
	case KindDownloadBinary:
		return "download_binary"
	case KindUpload:
		return "upload"
	case KindUploadBinaryComponent:
		return "upload_binary_component"
	case KindUploadSourceComponent:
		return "upload_source_component"
	case KindUploadSource:
		return "upload_source"
	case KindDecision:
		return "decision"
	default:
		return "unknown"
	}
}

// Action is implemented by every action variant and by Decision.
type Action interface {
	UID() string
	Kind() Kind
}

// RootUID is the fixed uid of the single Root action every expansion DAG
// is rooted at.
const RootUID = "root"

// Root is the sentinel action every other action is ultimately a
// predecessor of.
type Root struct{}

func (Root) UID() string { return RootUID }
func (Root) Kind() Kind  { return KindRoot }

// GetSource represents obtaining a named source builder's assembled
// sources, regardless of whether they are created locally or downloaded.
type GetSource struct {
	BuilderName string
}

func (a GetSource) UID() string { return "source_get." + a.BuilderName }
func (GetSource) Kind() Kind    { return KindGetSource }

// DownloadSource represents fetching a prebuilt source archive for a
// builder instead of assembling it locally.
type DownloadSource struct {
	BuilderName string
}

func (a DownloadSource) UID() string { return "download." + a.BuilderName }
func (DownloadSource) Kind() Kind    { return KindDownloadSource }

// CreateSource represents locally assembling one named source belonging to
// a spec instance.
type CreateSource struct {
	SpecUID    string
	SourceName string
}

func (a CreateSource) UID() string { return a.SpecUID + "." + a.SourceName }
func (CreateSource) Kind() Kind    { return KindCreateSource }

// CreateSources aggregates every source a spec instance declares.
type CreateSources struct {
	SpecUID string
}

func (a CreateSources) UID() string { return a.SpecUID + ".sources" }
func (CreateSources) Kind() Kind    { return KindCreateSources }

// InstallSource represents placing one already-obtained source into a
// spec instance's build tree.
type InstallSource struct {
	SelfUID    string
	SpecUID    string
	SourceName string
}

func (a InstallSource) UID() string { return a.SelfUID }
func (InstallSource) Kind() Kind    { return KindInstallSource }

// Checkout represents checking out one named repository.
type Checkout struct {
	RepoName string
	RepoData any
}

func (a Checkout) UID() string { return "checkout." + a.RepoName }
func (Checkout) Kind() Kind    { return KindCheckout }

// Primitive identifies which of a spec's top-level primitives an
// AnodAction performs.
type Primitive string

const (
	PrimitiveBuild   Primitive = "build"
	PrimitiveTest    Primitive = "test"
	PrimitiveInstall Primitive = "install"
	PrimitiveSource  Primitive = "source"
)

// AnodAction is a primitive invocation (build/test/install) against a spec
// instance; its uid is simply the spec instance's own uid.
type AnodAction struct {
	SpecUID   string
	Primitive Primitive
}

func (a AnodAction) UID() string { return a.SpecUID }
func (a AnodAction) Kind() Kind {
	switch a.Primitive {
	case PrimitiveBuild:
		return KindBuild
	case PrimitiveTest:
		return KindTest
	case PrimitiveInstall:
		return KindInstall
	default:
		return KindBuild
	}
}

// replaceLastSegment swaps the final dot-separated component of uid with
// repl, matching how download/upload action uids are derived from the
// build-action uid they shadow.
func replaceLastSegment(uid, repl string) string {
	idx := strings.LastIndex(uid, ".")
	if idx < 0 {
		return repl
	}
	return uid[:idx+1] + repl
}

// DownloadBinary represents fetching a prebuilt binary package instead of
// building a spec instance locally.
type DownloadBinary struct {
	SpecUID string
}

func (a DownloadBinary) UID() string { return replaceLastSegment(a.SpecUID, "download_bin") }
func (DownloadBinary) Kind() Kind    { return KindDownloadBinary }

// UploadPrefix distinguishes the human-facing label used for the two
// concrete upload component kinds.
const (
	UploadPrefixBinary = "binary package"
	UploadPrefixSource = "source metadata"
)

// UploadBinaryComponent represents publishing a built spec instance's
// binary package to the artefact store.
type UploadBinaryComponent struct {
	SpecUID string
}

func (a UploadBinaryComponent) UID() string { return replaceLastSegment(a.SpecUID, "upload_bin") }
func (UploadBinaryComponent) Kind() Kind    { return KindUploadBinaryComponent }

// UploadSourceComponent represents publishing a spec instance's source
// metadata to the artefact store.
type UploadSourceComponent struct {
	SpecUID string
}

func (a UploadSourceComponent) UID() string { return replaceLastSegment(a.SpecUID, "upload_bin") }
func (UploadSourceComponent) Kind() Kind    { return KindUploadSourceComponent }

// UploadSource represents publishing one named assembled source.
type UploadSource struct {
	SpecUID    string
	SourceName string
}

func (a UploadSource) UID() string {
	return replaceLastSegment(a.SpecUID, "upload_src") + "." + a.SourceName
}
func (UploadSource) Kind() Kind { return KindUploadSource }

// IsUpload reports whether k is one of the Upload-family kinds, which the
// scheduler defers to a post-pass rather than scheduling inline.
func IsUpload(k Kind) bool {
	switch k {
	case KindUpload, KindUploadBinaryComponent, KindUploadSourceComponent, KindUploadSource:
		return true
	default:
		return false
	}
}
