package domain

// AudioFile is one wiki audio asset with its candidate download URLs,
// best candidate first. The hash-derived fallback URL is always last.
type AudioFile struct {
	FileTitle string   `json:"fileTitle"`
	Links     []string `json:"links"`
}

// AudioResolution is the result of resolving one student's voice set.
type AudioResolution struct {
	AudioPageTitle string       `json:"audioTitle"`
	FileTitles     []string     `json:"fileTitles"`
	Files          []*AudioFile `json:"files,omitempty"`

	FromCache bool `json:"-"`
}

// Usable reports whether the entry is complete enough to short-circuit
// resolution: a page title and at least one file identifier.
func (r *AudioResolution) Usable() bool {
	return r != nil && r.AudioPageTitle != "" && len(r.FileTitles) > 0
}

// LinksByTitle flattens Files into a fileTitle -> links map, skipping
// empty link lists.
func (r *AudioResolution) LinksByTitle() map[string][]string {
	out := make(map[string][]string)
	if r == nil {
		return out
	}
	for _, f := range r.Files {
		if f == nil || f.FileTitle == "" || len(f.Links) == 0 {
			continue
		}
		out[f.FileTitle] = f.Links
	}
	return out
}

// VoiceLinkCache is the persisted link-cache envelope, keyed by
// student cache key.
type VoiceLinkCache struct {
	UpdatedAt int64                       `json:"updatedAt"`
	Students  map[string]*AudioResolution `json:"students"`
}

func NewVoiceLinkCache() *VoiceLinkCache {
	return &VoiceLinkCache{Students: make(map[string]*AudioResolution)}
}

// ProgressEvent is the transport-agnostic progress message emitted by
// batch sync and downloads.
type ProgressEvent struct {
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	CurrentItem string `json:"currentItem"`
	OK          bool   `json:"ok"`
	Reason      string `json:"reason,omitempty"`
}

// ProgressFunc receives progress events. A nil ProgressFunc is always
// allowed.
type ProgressFunc func(ProgressEvent)

// Report invokes the callback when non-nil.
func (f ProgressFunc) Report(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}
