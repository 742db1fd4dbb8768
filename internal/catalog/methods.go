package catalog

// Parameter names that the builder resolves through override rules rather
// than the generic numeric loop.
const (
	ParamDepth        = "ddepth"
	ParamAdaptiveType = "AdaptiveType"
)

var depthValues = []string{"CV_8U", "CV_16U", "CV_16S", "CV_32F", "CV_64F"}

// commandCodes maps option names to the engine's wire commands.
var commandCodes = map[string]string{
	"RGB":                  "COLOR_RGB2RGB",
	"Grayscale":            "COLOR_RGB2GRAY",
	"HSV":                  "COLOR_RGB2HSV",
	"YUV":                  "COLOR_RGB2YUV",
	"LAB":                  "COLOR_RGB2LAB",
	"Blur":                 "BLUR",
	"Canny":                "CANNY",
	"Sobel":                "SOBEL",
	"Laplacian":            "LAPLACIAN",
	"Prewitt":              "PREWITT",
	"Roberts":              "ROBERTS",
	"Otsu":                 "OTSU",
	"AdaptiveThresholding": "ADAPTIVE_THRESHOLD",
	"SimpleThresholding":   "THRESHOLD",
	"Erosion":              "EROSION",
	"Dilation":             "MORPH_DILATE",
	"Opening":              "OPENING",
	"Closing":              "CLOSING",
}

func methods() map[Category][]Option {
	px := func(name string) Option {
		return Option{Name: name, Params: []ParamSpec{NumericSpec("px", 0, 100)}}
	}
	minMax := func(name string) Option {
		return Option{Name: name, Params: []ParamSpec{
			NumericSpec("Min", 0, 255),
			NumericSpec("Max", 0, 255),
		}}
	}
	xy := func(name string) Option {
		return Option{Name: name, Params: []ParamSpec{
			NumericSpec("x", 0, 100),
			NumericSpec("y", 0, 100),
		}}
	}

	return map[Category][]Option{
		ColorConversion: {
			{Name: "RGB"},
			{Name: "Grayscale"},
			{Name: "HSV"},
			{Name: "YUV"},
			{Name: "LAB"},
		},
		Filter: {
			{Name: "Blur", Params: []ParamSpec{NumericSpec("Kernel", 0, 255)}},
			{Name: "Canny", Params: []ParamSpec{
				NumericSpec("Threshold1", 0, 255),
				NumericSpec("Threshold2", 0, 255),
			}},
		},
		EdgeDetector: {
			{Name: "Sobel", Params: []ParamSpec{EnumSpec(ParamDepth, depthValues...)}},
			{Name: "Laplacian", Params: []ParamSpec{EnumSpec(ParamDepth, depthValues...)}},
			xy("Prewitt"),
			xy("Roberts"),
		},
		Binarization: {
			minMax("Otsu"),
			{Name: "AdaptiveThresholding", Params: []ParamSpec{
				NumericSpec("Max", 0, 255),
				EnumSpec(ParamAdaptiveType, "ADAPTIVE_THRESH_MEAN_C", "ADAPTIVE_THRESH_GAUSSIAN_C"),
			}},
			minMax("SimpleThresholding"),
		},
		Morphology: {
			px("Erosion"),
			px("Dilation"),
			px("Opening"),
			px("Closing"),
		},
	}
}

// DefaultSelection is the option each category starts with.
var DefaultSelection = map[Category]string{
	ColorConversion: "RGB",
	Filter:          "Blur",
	EdgeDetector:    "Laplacian",
	Binarization:    "Otsu",
	Morphology:      "Erosion",
}

var std = New(methods(), commandCodes)

// Default returns the process-wide catalog.
func Default() *Catalog {
	return std
}
