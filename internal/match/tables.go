package match

// Static lookup tables. Keys are lower-case unless noted.

// commodityKeywords flag commodity descriptions typical of air-freighted goods.
var commodityKeywords = []string{
	"electronic",
	"computer",
	"display",
	"medical",
	"audio",
	"processing",
	"monitor",
}

// majorPortCities are gateway cities matched as substrings of port and
// customs district fields.
var majorPortCities = []string{
	"los angeles",
	"long beach",
	"new york",
	"newark",
	"chicago",
	"miami",
	"atlanta",
	"dallas",
	"houston",
	"san francisco",
	"oakland",
	"seattle",
	"tacoma",
	"anchorage",
	"memphis",
	"louisville",
	"savannah",
	"charleston",
}

// majorZips are consignee ZIP codes around the largest cargo gateways.
var majorZips = map[string]bool{
	"90045": true, // LAX
	"90810": true, // Long Beach
	"11430": true, // JFK
	"07114": true, // EWR
	"60666": true, // ORD
	"33122": true, // MIA
	"30320": true, // ATL
	"75261": true, // DFW
	"77032": true, // IAH
	"94128": true, // SFO
	"98158": true, // SEA
	"99502": true, // ANC
	"38118": true, // MEM
	"40209": true, // SDF
}

// countryAirports maps an origin country to its main cargo airport codes
// (upper-case IATA codes).
var countryAirports = map[string][]string{
	"south korea":    {"ICN", "GMP"},
	"korea, south":   {"ICN", "GMP"},
	"korea":          {"ICN", "GMP"},
	"china":          {"PVG", "PEK", "CAN", "SZX"},
	"hong kong":      {"HKG"},
	"taiwan":         {"TPE"},
	"japan":          {"NRT", "HND", "KIX"},
	"vietnam":        {"SGN", "HAN"},
	"singapore":      {"SIN"},
	"malaysia":       {"KUL", "PEN"},
	"thailand":       {"BKK"},
	"philippines":    {"MNL"},
	"india":          {"DEL", "BOM", "BLR", "MAA"},
	"germany":        {"FRA", "MUC", "LEJ"},
	"netherlands":    {"AMS"},
	"united kingdom": {"LHR"},
	"france":         {"CDG"},
	"ireland":        {"DUB", "SNN"},
	"israel":         {"TLV"},
	"mexico":         {"MEX", "GDL"},
	"canada":         {"YYZ", "YVR"},
}

// commodityCategories drive name synthesis when the HS code has no table
// entry. Order matters: the first hint found wins.
var commodityCategories = []struct {
	hint     string
	category string
}{
	{"electronic", "Electronics"},
	{"medical", "Medical"},
	{"computer", "Computer"},
}

// synthesizedSuffixes are appended to "{country} {category}".
var synthesizedSuffixes = []string{"Co", "Inc", "Corp"}

// defaultCandidates is the per-HS-code key used when the origin country has
// no list of its own.
const defaultCandidates = "default"

// companyInference maps HS code -> origin country -> plausible shippers.
// Candidate order is significant for deterministic selection.
var companyInference = map[string]map[string][]string{
	// Processing units for automatic data-processing machines.
	"8471500000": {
		"china":           {"Lenovo Group Ltd", "Inspur Electronic Information Industry Co Ltd"},
		"taiwan":          {"Quanta Computer Inc", "Wistron Corp"},
		defaultCandidates: {"Dell Technologies Inc", "Hewlett Packard Enterprise Co"},
	},
	// Input or output units for automatic data-processing machines.
	"8471600000": {
		"south korea":     {"Samsung Electronics Co Ltd", "LG Electronics Inc"},
		"china":           {"Logitech Technology Suzhou Co Ltd", "Lenovo Group Ltd"},
		"taiwan":          {"Chicony Electronics Co Ltd", "Primax Electronics Ltd"},
		defaultCandidates: {"Logitech International SA", "HP Inc"},
	},
	// Portable automatic data-processing machines (laptops).
	"8471300100": {
		"china":           {"Quanta Shanghai Manufacture City", "Compal Information Kunshan Co Ltd", "Lenovo Group Ltd"},
		"taiwan":          {"ASUSTeK Computer Inc", "Acer Inc"},
		"vietnam":         {"Foxconn Vietnam Co Ltd", "Wistron InfoComm Vietnam Co Ltd"},
		defaultCandidates: {"Apple Inc", "Dell Technologies Inc", "HP Inc"},
	},
	// Monitors.
	"8528520000": {
		"south korea":     {"LG Display Co Ltd", "Samsung Display Co Ltd"},
		"china":           {"BOE Technology Group Co Ltd", "TPV Technology Ltd"},
		"taiwan":          {"AU Optronics Corp", "Innolux Corp"},
		defaultCandidates: {"Dell Technologies Inc", "LG Electronics Inc"},
	},
	// Smartphones.
	"8517130000": {
		"china":           {"Hon Hai Precision Industry Co Ltd", "Xiaomi Corp"},
		"south korea":     {"Samsung Electronics Co Ltd"},
		"vietnam":         {"Samsung Electronics Vietnam Co Ltd"},
		"india":           {"Foxconn Hon Hai Technology India Mega Development Pvt Ltd"},
		defaultCandidates: {"Apple Inc", "Samsung Electronics America Inc"},
	},
	// Processors and controllers.
	"8542310000": {
		"taiwan":          {"Taiwan Semiconductor Manufacturing Co Ltd", "ASE Technology Holding Co Ltd"},
		"south korea":     {"Samsung Electronics Co Ltd", "SK Hynix Inc"},
		"malaysia":        {"Intel Malaysia Sdn Bhd", "Advanced Micro Devices Export Sdn Bhd"},
		defaultCandidates: {"Intel Corp", "Texas Instruments Inc"},
	},
	// Parts and accessories of data-processing machines.
	"8473300000": {
		"taiwan":          {"Hon Hai Precision Industry Co Ltd", "Pegatron Corp"},
		"china":           {"Luxshare Precision Industry Co Ltd", "Foxconn Industrial Internet Co Ltd"},
		defaultCandidates: {"Jabil Inc", "Flex Ltd"},
	},
	// Headphones and earphones.
	"8518300000": {
		"china":           {"Goertek Inc", "Luxshare Precision Industry Co Ltd"},
		"vietnam":         {"Goertek Vina Co Ltd", "Luxshare ICT Vietnam Co Ltd"},
		defaultCandidates: {"Sony Electronics Inc", "Bose Corp"},
	},
	// Electro-diagnostic apparatus.
	"9018190000": {
		"germany":         {"Siemens Healthineers AG", "Draegerwerk AG"},
		"japan":           {"Nihon Kohden Corp", "Fukuda Denshi Co Ltd"},
		"china":           {"Shenzhen Mindray Bio-Medical Electronics Co Ltd", "Edan Instruments Inc"},
		"netherlands":     {"Philips Medical Systems Nederland BV"},
		defaultCandidates: {"GE HealthCare Technologies Inc", "Medtronic Inc"},
	},
	// Syringes, needles and catheters.
	"9018390000": {
		"ireland":         {"Medtronic Ireland Ltd", "Boston Scientific Ltd"},
		"mexico":          {"Becton Dickinson de Mexico SA de CV", "Medtronic Mexico S de RL de CV"},
		defaultCandidates: {"Becton Dickinson and Co", "Cardinal Health Inc"},
	},
}
