package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RuleSet holds the keyword and tag vocabularies the classifier evaluates.
// Every list is matched against lowercased, NFKC-folded values.
type RuleSet struct {
	// BarAmenities are amenity values that always mean a bar.
	BarAmenities []string `yaml:"bar_amenities"`
	// BarWords are short name tokens matched on word boundaries only.
	BarWords []string `yaml:"bar_words"`
	// BarPhrases are longer name fragments matched anywhere in the name.
	BarPhrases []string `yaml:"bar_phrases"`
	// TakeoutChains are known quick-service brands.
	TakeoutChains []string `yaml:"takeout_chains"`
	// TakeoutPhrases are quick-service establishment keywords.
	TakeoutPhrases []string `yaml:"takeout_phrases"`
	// TakeoutAmenities are amenity values that mean counter service.
	TakeoutAmenities []string `yaml:"takeout_amenities"`
	// DineInPhrases are table-service establishment keywords.
	DineInPhrases []string `yaml:"dine_in_phrases"`
	// BudgetAmenities map to price tier 1.
	BudgetAmenities []string `yaml:"budget_amenities"`
	// PremiumCuisines map to price tier 3 when found in the cuisine tag.
	PremiumCuisines []string `yaml:"premium_cuisines"`
}

// DefaultRuleSet returns the built-in vocabulary.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		BarAmenities: []string{"bar", "pub", "biergarten", "nightclub"},
		BarWords:     []string{"bar", "pub", "tavern", "saloon", "grill", "club", "pint", "lodge"},
		BarPhrases: []string{
			// beer
			"taproom", "tap room", "brewery", "brewing", "brewpub", "brew pub",
			"taphouse", "tap house", "alehouse", "ale house", "beer hall", "brew house",
			"biergarten", "beer garden", "hop house", "draft house", "drafthouse",
			// wine and spirits
			"winery", "wine bar", "distillery", "spirits", "whiskey", "bourbon",
			"bottle shop", "wine cellar",
			// cocktail and lounge
			"speakeasy", "geekeasy", "cocktail", "lounge", "social club",
			"rooftop bar", "tiki bar", "tiki",
			// pub styles
			"gastropub", "gastro pub", "sports bar", "irish pub", "scottish pub",
			"dive bar", "neighborhood bar", "local bar",
			"bar & grill", "bar and grill", "barrel house",
			// entertainment
			"nightclub", "night club", "dance club", "honky tonk", "juke joint",
			"arcade bar", "barcade", "pinball bar", "bowling bar",
			"music room", "live music",
			"cantina", "roadhouse", "watering hole", "drinkery",
			"bodega", "beer bar", "shot bar",
		},
		TakeoutChains: []string{
			"starbucks", "dunkin", "tim hortons", "tim horton's", "peet's coffee", "peets coffee", "dutch bros",
			"mcdonald's", "mcdonalds", "wendy's", "wendys", "burger king", "five guys", "in-n-out", "shake shack",
			"whataburger", "culver's", "culvers", "hardee's", "hardees", "carl's jr", "carls jr", "jack in the box",
			"white castle", "krystal", "checkers", "rally's", "rallys", "smashburger", "steak n shake", "steak 'n shake",
			"chick-fil-a", "popeye's", "popeyes", "kfc", "kentucky fried", "raising cane's", "raising canes",
			"zaxby's", "zaxbys", "bojangles", "bojangle's",
			"church's chicken", "churchs chicken", "golden chick", "wingstop", "wing stop",
			"taco bell", "chipotle", "del taco", "el pollo loco", "qdoba", "moe's southwest", "moes southwest",
			"subway", "jimmy john's", "jimmy johns", "jersey mike's", "jersey mikes", "firehouse subs", "potbelly", "which wich",
			"jason's deli", "jasons deli", "mcalister's", "mcalisters", "penn station", "schlotzsky's", "schlotzskys",
			"domino's", "dominos", "papa john's", "papa johns", "pizza hut", "little caesars", "little caesar's",
			"marco's pizza", "marcos pizza",
			"hungry howie's", "hungry howies", "jet's pizza", "jets pizza", "papa murphy's", "papa murphys",
			"panera", "panera bread", "panda express", "sonic", "arby's", "arbys", "dairy queen",
			"baskin-robbins", "baskin robbins",
			"krispy kreme", "auntie anne's", "auntie annes", "cinnabon", "jamba juice", "jamba", "tropical smoothie",
			"dickey's", "dickeys", "mission bbq", "wawa", "sheetz", "quiktrip", "racetrac",
		},
		TakeoutPhrases: []string{
			"drive-in", "drive in", "drive-thru", "drive thru",
			"food truck", "food cart", "food stand",
			"hamburger stand", "hot dog stand", "snack bar", "snack shack",
			"delicatessen", "deli", "lunch counter", "lunch wagon",
			"coffee shop", "coffeehouse", "coffee house", "soda fountain",
			"cafeteria", "canteen", "beanery", "caff",
			"donut", "doughnut", "bagel", "smoothie", "juice bar", "ice cream",
			"frozen yogurt", "froyo", "bubble tea", "boba",
		},
		TakeoutAmenities: []string{"cafe", "fast_food"},
		DineInPhrases: []string{
			"bistro", "brasserie", "trattoria", "ristorante", "osteria",
			"chophouse", "steakhouse", "steak house", "grillroom", "grill room",
			"taqueria", "pizzeria", "ramen", "sushi", "hibachi", "teppanyaki",
			"diner", "eatery", "eating house", "luncheonette", "lunchroom",
			"inn", "tearoom", "tea room", "teahouse", "tea house",
			"fine dining", "upscale", "gourmet",
		},
		BudgetAmenities: []string{"fast_food"},
		PremiumCuisines: []string{"fine_dining", "steak", "seafood"},
	}
}

// LoadRuleSet reads a YAML rule file and overlays it on the defaults. Lists
// present in the file replace the built-in list wholesale; absent lists keep
// the default.
func LoadRuleSet(path string) (RuleSet, error) {
	rs := DefaultRuleSet()
	if path == "" {
		return rs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rs, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var wrapper struct {
		Classify RuleSet `yaml:"classify"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return rs, eris.Wrap(err, "classify: parse rules")
	}

	o := wrapper.Classify
	overlay(&rs.BarAmenities, o.BarAmenities)
	overlay(&rs.BarWords, o.BarWords)
	overlay(&rs.BarPhrases, o.BarPhrases)
	overlay(&rs.TakeoutChains, o.TakeoutChains)
	overlay(&rs.TakeoutPhrases, o.TakeoutPhrases)
	overlay(&rs.TakeoutAmenities, o.TakeoutAmenities)
	overlay(&rs.DineInPhrases, o.DineInPhrases)
	overlay(&rs.BudgetAmenities, o.BudgetAmenities)
	overlay(&rs.PremiumCuisines, o.PremiumCuisines)

	return rs, nil
}

// overlay replaces dst with src folded the same way venue names are, so
// "Taproom" or a curly apostrophe in a rule file still matches.
func overlay(dst *[]string, src []string) {
	folded := make([]string, 0, len(src))
	for _, kw := range src {
		if kw = normalize(kw); kw != "" {
			folded = append(folded, kw)
		}
	}
	if len(folded) > 0 {
		*dst = folded
	}
}
