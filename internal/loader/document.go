package loader

// The structures in this file mirror the export's metadata.json document.
// Field names are an external contract owned by the upstream exporter;
// unknown fields are tolerated and ignored.

// document is the top-level metadata.json structure.
type document struct {
	Title    string       `json:"title" validate:"required"`
	Creator  []creatorDoc `json:"creator"`
	Spine    []spineDoc   `json:"spine" validate:"required,min=1,dive"`
	Chapters []chapterDoc `json:"chapters" validate:"dive"`
}

// creatorDoc names a contributor and their role. Known roles are "author",
// "narrator", and the combined "author and narrator".
type creatorDoc struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// spineDoc describes one physical part: its declared duration in seconds.
// Type and bitrate are carried by the document but unused here.
type spineDoc struct {
	Duration float64 `json:"duration" validate:"gte=0"`
	Type     string  `json:"type"`
	Bitrate  int     `json:"bitrate"`
}

// chapterDoc is one chapter marker: a title, the 0-based spine index of the
// part it starts in, and the start offset in seconds relative to that part.
type chapterDoc struct {
	Title  string  `json:"title"`
	Spine  int     `json:"spine" validate:"gte=0"`
	Offset float64 `json:"offset" validate:"gte=0"`
}
