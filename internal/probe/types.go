package probe

// ffprobeOutput mirrors the JSON emitted by
// `ffprobe -print_format json -show_format -show_streams`.
// Numeric fields that ffprobe prints as strings stay strings here and are
// parsed explicitly.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index         int    `json:"index"`
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	PixFmt        string `json:"pix_fmt"`
	BitRate       string `json:"bit_rate"`
	NbFrames      string `json:"nb_frames"`
	ColorTransfer string `json:"color_transfer"`

	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`

	SideDataList []struct {
		SideDataType string  `json:"side_data_type"`
		Rotation     float64 `json:"rotation"`
	} `json:"side_data_list"`

	Tags map[string]string `json:"tags"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}
