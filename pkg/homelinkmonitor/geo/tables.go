package geo

import "github.com/vpbank/homelink_monitor/models"

// Reference points. Every table below points at one of these so a city's
// coordinates are written exactly once.
var (
	amsterdam    = intl("Amsterdam", "Netherlands", 52.370, 4.895)
	ashburn      = us("Ashburn", "VA", 39.044, -77.487)
	atlanta      = us("Atlanta", "GA", 33.749, -84.388)
	austin       = us("Austin", "TX", 30.267, -97.743)
	baltimore    = us("Baltimore", "MD", 39.290, -76.612)
	boston       = us("Boston", "MA", 42.360, -71.059)
	brussels     = intl("Brussels", "Belgium", 50.850, 4.352)
	buffalo      = us("Buffalo", "NY", 42.887, -78.879)
	charlotte    = us("Charlotte", "NC", 35.227, -80.843)
	chicago      = us("Chicago", "IL", 41.878, -87.630)
	cincinnati   = us("Cincinnati", "OH", 39.100, -84.512)
	cleveland    = us("Cleveland", "OH", 41.499, -81.694)
	columbus     = us("Columbus", "OH", 39.962, -82.999)
	copenhagen   = intl("Copenhagen", "Denmark", 55.676, 12.569)
	dallas       = us("Dallas", "TX", 32.777, -96.797)
	denver       = us("Denver", "CO", 39.739, -104.990)
	detroit      = us("Detroit", "MI", 42.331, -83.046)
	dublin       = intl("Dublin", "Ireland", 53.350, -6.260)
	elPaso       = us("El Paso", "TX", 31.762, -106.485)
	fortWorth    = us("Fort Worth", "TX", 32.755, -97.331)
	frankfurt    = intl("Frankfurt", "Germany", 50.110, 8.682)
	fremont      = us("Fremont", "CA", 37.548, -121.989)
	helsinki     = intl("Helsinki", "Finland", 60.170, 24.938)
	herndon      = us("Herndon", "VA", 38.970, -77.386)
	hillsboro    = us("Hillsboro", "OR", 45.523, -122.990)
	hongKong     = intl("Hong Kong", "Hong Kong", 22.320, 114.169)
	houston      = us("Houston", "TX", 29.760, -95.370)
	indianapolis = us("Indianapolis", "IN", 39.768, -86.158)
	irvine       = us("Irvine", "CA", 33.684, -117.827)
	jacksonville = us("Jacksonville", "FL", 30.332, -81.656)
	kansasCity   = us("Kansas City", "MO", 39.100, -94.578)
	lasVegas     = us("Las Vegas", "NV", 36.169, -115.140)
	lisbon       = intl("Lisbon", "Portugal", 38.722, -9.139)
	london       = intl("London", "United Kingdom", 51.507, -0.128)
	losAngeles   = us("Los Angeles", "CA", 34.052, -118.244)
	madrid       = intl("Madrid", "Spain", 40.417, -3.704)
	marseille    = intl("Marseille", "France", 43.296, 5.370)
	mexicoCity   = intl("Mexico City", "Mexico", 19.433, -99.133)
	miami        = us("Miami", "FL", 25.762, -80.192)
	milan        = intl("Milan", "Italy", 45.464, 9.190)
	milwaukee    = us("Milwaukee", "WI", 43.039, -87.907)
	minneapolis  = us("Minneapolis", "MN", 44.978, -93.265)
	montreal     = intl("Montreal", "Canada", 45.502, -73.567)
	mountainView = us("Mountain View", "CA", 37.386, -122.084)
	munich       = intl("Munich", "Germany", 48.137, 11.576)
	nashville    = us("Nashville", "TN", 36.163, -86.781)
	newark       = us("Newark", "NJ", 40.736, -74.172)
	newOrleans   = us("New Orleans", "LA", 29.951, -90.072)
	newYork      = us("New York", "NY", 40.713, -74.006)
	oakland      = us("Oakland", "CA", 37.804, -122.271)
	oklahomaCity = us("Oklahoma City", "OK", 35.468, -97.516)
	omaha        = us("Omaha", "NE", 41.256, -95.934)
	orlando      = us("Orlando", "FL", 28.538, -81.379)
	osaka        = intl("Osaka", "Japan", 34.694, 135.502)
	oslo         = intl("Oslo", "Norway", 59.914, 10.752)
	paloAlto     = us("Palo Alto", "CA", 37.442, -122.143)
	paris        = intl("Paris", "France", 48.857, 2.352)
	philadelphia = us("Philadelphia", "PA", 39.953, -75.164)
	phoenix      = us("Phoenix", "AZ", 33.449, -112.074)
	pittsburgh   = us("Pittsburgh", "PA", 40.441, -79.996)
	portland     = us("Portland", "OR", 45.505, -122.675)
	prague       = intl("Prague", "Czech Republic", 50.075, 14.437)
	raleigh      = us("Raleigh", "NC", 35.780, -78.639)
	reston       = us("Reston", "VA", 38.959, -77.357)
	sacramento   = us("Sacramento", "CA", 38.582, -121.494)
	saltLakeCity = us("Salt Lake City", "UT", 40.761, -111.891)
	sanAntonio   = us("San Antonio", "TX", 29.425, -98.495)
	sanDiego     = us("San Diego", "CA", 32.716, -117.161)
	sanFrancisco = us("San Francisco", "CA", 37.775, -122.418)
	sanJose      = us("San Jose", "CA", 37.339, -121.895)
	santaClara   = us("Santa Clara", "CA", 37.354, -121.955)
	saoPaulo     = intl("São Paulo", "Brazil", -23.551, -46.633)
	seattle      = us("Seattle", "WA", 47.606, -122.332)
	secaucus     = us("Secaucus", "NJ", 40.790, -74.057)
	seoul        = intl("Seoul", "South Korea", 37.566, 126.978)
	singapore    = intl("Singapore", "Singapore", 1.352, 103.820)
	stLouis      = us("St. Louis", "MO", 38.627, -90.199)
	stockholm    = intl("Stockholm", "Sweden", 59.329, 18.069)
	sunnyvale    = us("Sunnyvale", "CA", 37.369, -122.036)
	sydney       = intl("Sydney", "Australia", -33.869, 151.209)
	tampa        = us("Tampa", "FL", 27.951, -82.458)
	tokyo        = intl("Tokyo", "Japan", 35.682, 139.692)
	toronto      = intl("Toronto", "Canada", 43.653, -79.383)
	vancouver    = intl("Vancouver", "Canada", 49.283, -123.121)
	vienna       = intl("Vienna", "Austria", 48.208, 16.372)
	warsaw       = intl("Warsaw", "Poland", 52.230, 21.012)
	washington   = us("Washington", "DC", 38.907, -77.037)
	zurich       = intl("Zurich", "Switzerland", 47.377, 8.540)
)

// usStates holds the 50 states plus DC, sorted.
var usStates = []string{
	"ak", "al", "ar", "az", "ca", "co", "ct", "dc", "de", "fl",
	"ga", "hi", "ia", "id", "il", "in", "ks", "ky", "la", "ma",
	"md", "me", "mi", "mn", "mo", "ms", "mt", "nc", "nd", "ne",
	"nh", "nj", "nm", "nv", "ny", "oh", "ok", "or", "pa", "ri",
	"sc", "sd", "tn", "tx", "ut", "va", "vt", "wa", "wi", "wv",
	"wy",
}

type codeEntry struct {
	code string
	loc  models.ParsedLocation
}

// clliCities maps the 4-letter city part of a CLLI code. The region of a
// match comes from the hostname, not from the entry.
var clliCities = []codeEntry{
	{"asbn", ashburn},
	{"atln", atlanta},
	{"atlx", atlanta},
	{"ausn", austin},
	{"bflo", buffalo},
	{"bltm", baltimore},
	{"bstn", boston},
	{"chcg", chicago},
	{"chrl", charlotte},
	{"cinc", cincinnati},
	{"clev", cleveland},
	{"clmb", columbus},
	{"denv", denver},
	{"dlls", dallas},
	{"dllx", dallas},
	{"dtrt", detroit},
	{"elpa", elPaso},
	{"hstn", houston},
	{"hstx", houston},
	{"jcsn", jacksonville},
	{"jcvl", jacksonville},
	{"kscy", kansasCity},
	{"lsan", losAngeles},
	{"lsvg", lasVegas},
	{"lsvn", lasVegas},
	{"miam", miami},
	{"milw", milwaukee},
	{"mnps", minneapolis},
	{"nsvl", nashville},
	{"nwrk", newark},
	{"nycm", newYork},
	{"okcy", oklahomaCity},
	{"omah", omaha},
	{"orld", orlando},
	{"phla", philadelphia},
	{"phnx", phoenix},
	{"pitt", pittsburgh},
	{"ptld", portland},
	{"rlgh", raleigh},
	{"sant", sanAntonio},
	{"scrm", sacramento},
	{"slkc", saltLakeCity},
	{"sndg", sanDiego},
	{"snfc", sanFrancisco},
	{"snjs", sanJose},
	{"snjx", sanJose},
	{"stls", stLouis},
	{"sttl", seattle},
	{"tamp", tampa},
	{"wash", washington},
}

type stateCity struct {
	state string
	name  string
	loc   models.ParsedLocation
}

// stateCities is keyed by (state, normalized city name) for the adjacency
// pass, where a city segment is followed by its state.
var stateCities = []stateCity{
	{"az", "phoenix", phoenix},
	{"ca", "fremont", fremont},
	{"ca", "irvine", irvine},
	{"ca", "losangeles", losAngeles},
	{"ca", "mountainview", mountainView},
	{"ca", "oakland", oakland},
	{"ca", "paloalto", paloAlto},
	{"ca", "sacramento", sacramento},
	{"ca", "sandiego", sanDiego},
	{"ca", "sanfrancisco", sanFrancisco},
	{"ca", "sanjose", sanJose},
	{"ca", "santaclara", santaClara},
	{"ca", "sunnyvale", sunnyvale},
	{"co", "denver", denver},
	{"dc", "washington", washington},
	{"fl", "jacksonville", jacksonville},
	{"fl", "miami", miami},
	{"fl", "orlando", orlando},
	{"fl", "tampa", tampa},
	{"ga", "atlanta", atlanta},
	{"il", "chicago", chicago},
	{"in", "indianapolis", indianapolis},
	{"la", "neworleans", newOrleans},
	{"ma", "boston", boston},
	{"md", "baltimore", baltimore},
	{"mi", "detroit", detroit},
	{"mn", "minneapolis", minneapolis},
	{"mo", "kansascity", kansasCity},
	{"mo", "stlouis", stLouis},
	{"nc", "charlotte", charlotte},
	{"nc", "raleigh", raleigh},
	{"ne", "omaha", omaha},
	{"nj", "newark", newark},
	{"nj", "secaucus", secaucus},
	{"nv", "lasvegas", lasVegas},
	{"ny", "buffalo", buffalo},
	{"ny", "newyork", newYork},
	{"oh", "cincinnati", cincinnati},
	{"oh", "cleveland", cleveland},
	{"oh", "columbus", columbus},
	{"ok", "oklahomacity", oklahomaCity},
	{"or", "hillsboro", hillsboro},
	{"or", "portland", portland},
	{"pa", "philadelphia", philadelphia},
	{"pa", "pittsburgh", pittsburgh},
	{"tn", "nashville", nashville},
	{"tx", "austin", austin},
	{"tx", "dallas", dallas},
	{"tx", "elpaso", elPaso},
	{"tx", "fortworth", fortWorth},
	{"tx", "houston", houston},
	{"tx", "sanantonio", sanAntonio},
	{"ut", "saltlakecity", saltLakeCity},
	{"va", "ashburn", ashburn},
	{"va", "herndon", herndon},
	{"va", "reston", reston},
	{"wa", "seattle", seattle},
	{"wi", "milwaukee", milwaukee},
}

// cityNames holds full city names that are unambiguous without a state
// (Level3/Lumen style segments such as "dallas1" or "sanjose2").
var cityNames = []codeEntry{
	{"amsterdam", amsterdam},
	{"atlanta", atlanta},
	{"austin", austin},
	{"baltimore", baltimore},
	{"boston", boston},
	{"buffalo", buffalo},
	{"charlotte", charlotte},
	{"chicago", chicago},
	{"cincinnati", cincinnati},
	{"cleveland", cleveland},
	{"columbus", columbus},
	{"dallas", dallas},
	{"denver", denver},
	{"detroit", detroit},
	{"fortworth", fortWorth},
	{"frankfurt", frankfurt},
	{"houston", houston},
	{"indianapolis", indianapolis},
	{"jacksonville", jacksonville},
	{"kansascity", kansasCity},
	{"lasvegas", lasVegas},
	{"london", london},
	{"losangeles", losAngeles},
	{"miami", miami},
	{"milwaukee", milwaukee},
	{"minneapolis", minneapolis},
	{"nashville", nashville},
	{"newark", newark},
	{"neworleans", newOrleans},
	{"newyork", newYork},
	{"oklahomacity", oklahomaCity},
	{"omaha", omaha},
	{"orlando", orlando},
	{"paris", paris},
	{"philadelphia", philadelphia},
	{"phoenix", phoenix},
	{"pittsburgh", pittsburgh},
	{"portland", portland},
	{"raleigh", raleigh},
	{"sacramento", sacramento},
	{"saltlakecity", saltLakeCity},
	{"sanantonio", sanAntonio},
	{"sandiego", sanDiego},
	{"sanfrancisco", sanFrancisco},
	{"sanjose", sanJose},
	{"seattle", seattle},
	{"singapore", singapore},
	{"stockholm", stockholm},
	{"sydney", sydney},
	{"tampa", tampa},
	{"tokyo", tokyo},
	{"toronto", toronto},
	{"vancouver", vancouver},
	{"washington", washington},
	{"zurich", zurich},
}

// iataCodes holds airport codes and the informal city abbreviations ISPs
// reuse in router names.
var iataCodes = []codeEntry{
	{"ams", amsterdam},
	{"arn", stockholm},
	{"atl", atlanta},
	{"aus", austin},
	{"bna", nashville},
	{"bos", boston},
	{"bru", brussels},
	{"bwi", baltimore},
	{"cdg", paris},
	{"chi", chicago},
	{"cle", cleveland},
	{"clt", charlotte},
	{"cmh", columbus},
	{"cph", copenhagen},
	{"cvg", cincinnati},
	{"dal", dallas},
	{"dca", washington},
	{"den", denver},
	{"dfw", dallas},
	{"dtw", detroit},
	{"dub", dublin},
	{"ewr", newark},
	{"fra", frankfurt},
	{"gru", saoPaulo},
	{"hel", helsinki},
	{"hkg", hongKong},
	{"hou", houston},
	{"iad", washington},
	{"iah", houston},
	{"icn", seoul},
	{"ind", indianapolis},
	{"jax", jacksonville},
	{"jfk", newYork},
	{"kix", osaka},
	{"las", lasVegas},
	{"lax", losAngeles},
	{"lhr", london},
	{"lis", lisbon},
	{"lon", london},
	{"mad", madrid},
	{"mci", kansasCity},
	{"mex", mexicoCity},
	{"mia", miami},
	{"mil", milan},
	{"mke", milwaukee},
	{"mrs", marseille},
	{"msp", minneapolis},
	{"msy", newOrleans},
	{"muc", munich},
	{"nrt", tokyo},
	{"nyc", newYork},
	{"oma", omaha},
	{"ord", chicago},
	{"osl", oslo},
	{"par", paris},
	{"pdx", portland},
	{"phl", philadelphia},
	{"phx", phoenix},
	{"pit", pittsburgh},
	{"prg", prague},
	{"rdu", raleigh},
	{"san", sanDiego},
	{"sao", saoPaulo},
	{"sat", sanAntonio},
	{"sea", seattle},
	{"sfo", sanFrancisco},
	{"sin", singapore},
	{"sjc", sanJose},
	{"slc", saltLakeCity},
	{"stl", stLouis},
	{"sto", stockholm},
	{"syd", sydney},
	{"tpa", tampa},
	{"tyo", tokyo},
	{"vie", vienna},
	{"was", washington},
	{"waw", warsaw},
	{"yul", montreal},
	{"yvr", vancouver},
	{"yyz", toronto},
	{"zrh", zurich},
}

func us(city, state string, lat, lon float64) models.ParsedLocation {
	return models.ParsedLocation{City: city, Region: state, Country: "United States", Latitude: lat, Longitude: lon}
}

func intl(city, country string, lat, lon float64) models.ParsedLocation {
	return models.ParsedLocation{City: city, Country: country, Latitude: lat, Longitude: lon}
}
