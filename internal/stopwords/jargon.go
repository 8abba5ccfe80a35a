package stopwords

// NameExceptions are alternate names that turned out not to bias
// classification towards their substance.
var NameExceptions = []string{
	"the light",
	"colour",
	"eternity",
	"beautiful",
	"aurora",
	"rosy",
}

// Jargon covers routes of administration, paraphernalia, units,
// neurotransmitters, mushroom and cactus taxonomy and chemical classes.
var Jargon = []string{
	"mushroom", "fungus", "fungi", "shroom", "cubensis", "cactus", "cacti", "san", "pedro", "peyote",
	"divinorum", "mpt", "mde", "mdma", "mdmc", "mda", "mxe", "mdpv", "eth", "lad", "molly",
	"ghb", "bufo", "alverius", "melatonin", "flunitrazepam", "alpraolam", "xanax", "woodrose",
	"l-amphetamine", "hostilis", "diphenhydramine", "mdpr", "br-dfly", "clonazolam", "clonazepam",
	"etizolam", "argyreia", "nervosa", "conocybe", "copelandia", "galerina", "gymnopilus", "inocybe",
	"panaeolus", "pholiotina", "pluteus", "psilocybe", "serotonin", "serotonergic", "dopamine",
	"dopaminergic", "norepinephrine", "adrenergic", "enpathogen", "empathogenic", "entactogen",
	"entactogenic", "entheogen", "entheogenic", "tab", "pipe", "smoked", "swallowed", "dropped",
	"insufflated", "insufflation", "vaporized", "bong", "bubbler", "hitter", "inhaled", "exhaled",
	"inhaling", "exhaling", "oral", "orally", "sublingual", "sub-lingual", "intramuscular", "injected",
	"injection", "gram", "g", "milligram", "mg", "microgram", "µg", "mcg", "microg", "mmhg",
	"milliliter", "ml", "freebase", "fumarate", "indole", "substituted", "lysergic", "lysergamide",
	"tryptamine", "phenethylamine", "phen", "phenthylamine", "dimethyltryptamine", "dox", "do-x",
	"nbome", "salvinorin", "salvorin", "amphetamine", "dexedrine", "b", "c", "d", "e", "j", "m", "p", "t",
	"peruvianus", "hydrobromide", "kappa", "opioid", "nasal", "nasally", "buccal", "buccally", "rectal",
	"rectally", "pcp", "hydrochloride", "foxie", "insuflated", "intranasal", "tscpn", "toke", "ipracetyl",
	"ketamine", "ket", "k", "snort", "snorting", "erowid", "gland", "brew", "tea", "pill", "capsule",
	"inhale", "exhale", "r", "redose", "dose", "extract", "shrooming", "syrian",
	"rue", "methylone", "comeup", "come-up", "glory", "seed", "xtc", "insufflate", "vapor", "vaporize",
	"hcl", "caapi", "datura", "oxide", "harmala", "alkaloid", "cocaine", "coke", "meth", "cannabis",
	"weed", "joint", "smoke", "sublingually", "sub-lingually", "lingual", "lingually", "come-down",
	"comedown", "aluminum", "foil", "boil", "extracted", "extraction", "syringe", "inject",
	"methamphetamine", "magnesium", "ssri", "marijuana", "amp", "tar", "nostril", "dropper", "codine",
	"ayahuasca", "dxm", "mush", "mushie", "ug", "nose", "inhalation", "exhalation", "eighth", "truffle",
	"harmaline", "spore", "gelcap", "memantine", "alprazolam", "aco", "meo", "drop", "research", "chemical",
	"rc", "hit", "smoking", "swallow", "powder", "free-base", "salt", "eyeball", "eyeballed", "eyeballing",
	"fume", "bromo", "lime", "juice", "ingest",
}

var (
	prefixes = []string{"pre-", "mid-", "post-"}
	suffixes = []string{"-like", "-type", "-esque"}
)
