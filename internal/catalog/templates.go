package catalog

import "github.com/avatarforge/api/internal/model"

// DefaultTemplates is the built-in shot catalog. Entries are immutable;
// selection never mutates them.
var DefaultTemplates = []model.Template{
	// Fitness
	{ID: "FIT-001", Category: model.CategoryFitness, Tier: model.TierSafe,
		Prompt: "athletic woman in fitted sportswear, gym environment",
		Pose:   "mid-workout pose, lifting dumbbells, focused expression",
		Lighting: "bright gym lighting, high contrast", Angle: "medium shot, slightly from below",
		Tags: []string{"gym", "strength", "workout"}},
	{ID: "FIT-002", Category: model.CategoryFitness, Tier: model.TierSafe,
		Prompt: "woman in yoga pose, yoga studio setting",
		Pose:   "warrior pose, balanced stance, serene expression",
		Lighting: "soft natural window light", Angle: "full body shot, side angle",
		Tags: []string{"yoga", "flexibility", "balance"}},
	{ID: "FIT-003", Category: model.CategoryFitness, Tier: model.TierSafe,
		Prompt: "runner in athletic wear, outdoor park setting",
		Pose:   "dynamic running pose, mid-stride",
		Lighting: "golden hour lighting, warm tones", Angle: "action shot, motion blur background",
		Tags: []string{"running", "cardio", "outdoor"}},
	{ID: "FIT-004", Category: model.CategoryFitness, Tier: model.TierPremium,
		Prompt: "fit woman in sports bra and leggings, home gym",
		Pose:   "post-workout selfie pose, mirror reflection",
		Lighting: "natural home lighting", Angle: "selfie angle, upper body focus",
		Tags: []string{"fitness", "selfie", "mirror"}},
	{ID: "FIT-005", Category: model.CategoryFitness, Tier: model.TierSafe,
		Prompt: "crossfit athlete, gym box environment",
		Pose:   "box jump preparation, powerful stance",
		Lighting: "dramatic gym lighting, shadows", Angle: "low angle",
		Tags: []string{"crossfit", "power", "athletic"}},

	// Lifestyle
	{ID: "LIFE-001", Category: model.CategoryLifestyle, Tier: model.TierSafe,
		Prompt: "woman enjoying morning coffee, cozy home setting",
		Pose:   "relaxed seated pose, holding coffee mug",
		Lighting: "soft morning window light", Angle: "medium shot",
		Tags: []string{"coffee", "morning", "cozy"}},
	{ID: "LIFE-002", Category: model.CategoryLifestyle, Tier: model.TierSafe,
		Prompt: "woman reading book in comfortable chair",
		Pose:   "natural reading pose, engaged with book",
		Lighting: "ambient home lighting", Angle: "side angle",
		Tags: []string{"reading", "relaxation"}},
	{ID: "LIFE-003", Category: model.CategoryLifestyle, Tier: model.TierSafe,
		Prompt: "woman cooking in modern kitchen",
		Pose:   "engaged in meal preparation",
		Lighting: "bright kitchen lighting", Angle: "over-the-shoulder perspective",
		Tags: []string{"cooking", "kitchen", "healthy"}},
	{ID: "LIFE-004", Category: model.CategoryLifestyle, Tier: model.TierSafe,
		Prompt: "woman working on laptop, home office",
		Pose:   "focused work pose, professional yet casual",
		Lighting: "natural desk lighting", Angle: "slight overhead angle",
		Tags: []string{"work", "home-office"}},
	{ID: "LIFE-005", Category: model.CategoryLifestyle, Tier: model.TierSafe,
		Prompt: "woman doing skincare routine, bathroom mirror",
		Pose:   "applying skincare product, self-care moment",
		Lighting: "bright bathroom lighting", Angle: "mirror selfie perspective",
		Tags: []string{"skincare", "self-care", "beauty"}},

	// Glamour
	{ID: "GLAM-001", Category: model.CategoryGlamour, Tier: model.TierPremium,
		Prompt: "glamorous woman in elegant evening dress",
		Pose:   "sophisticated pose, hand on hip, confident",
		Lighting: "dramatic studio lighting, high contrast", Angle: "full body shot",
		Tags: []string{"elegant", "evening", "glamour"}},
	{ID: "GLAM-002", Category: model.CategoryGlamour, Tier: model.TierPremium,
		Prompt: "woman in luxurious silk robe, boudoir setting",
		Pose:   "sensual seated pose, elegant posture",
		Lighting: "soft boudoir lighting", Angle: "medium shot, slightly from above",
		Tags: []string{"boudoir", "silk", "luxurious"}},
	{ID: "GLAM-003", Category: model.CategoryGlamour, Tier: model.TierPremium,
		Prompt: "woman with professional makeup, beauty portrait",
		Pose:   "classic beauty pose",
		Lighting: "professional beauty lighting", Angle: "close-up portrait, face focus",
		Tags: []string{"beauty", "makeup", "portrait"}},
	{ID: "GLAM-004", Category: model.CategoryGlamour, Tier: model.TierRestricted,
		Prompt: "artistic nude study, tasteful composition",
		Pose:   "artistic pose, body as art",
		Lighting: "dramatic artistic lighting, shadows", Angle: "artistic angle, partial coverage",
		Tags: []string{"artistic", "sophisticated"}},
	{ID: "GLAM-005", Category: model.CategoryGlamour, Tier: model.TierPremium,
		Prompt: "woman in luxury hotel room, sophisticated setting",
		Pose:   "relaxed pose by window, elegant demeanor",
		Lighting: "natural hotel lighting", Angle: "environmental portrait",
		Tags: []string{"luxury", "hotel", "travel"}},

	// Wellness
	{ID: "WELL-001", Category: model.CategoryWellness, Tier: model.TierSafe,
		Prompt: "woman meditating in serene home space",
		Pose:   "cross-legged meditation pose, peaceful",
		Lighting: "soft diffused light", Angle: "frontal medium shot",
		Tags: []string{"meditation", "mindfulness"}},
	{ID: "WELL-002", Category: model.CategoryWellness, Tier: model.TierSafe,
		Prompt: "woman enjoying healthy smoothie bowl",
		Pose:   "holding colorful smoothie bowl, genuine smile",
		Lighting: "bright natural light", Angle: "overhead flat lay plus subject",
		Tags: []string{"healthy", "nutrition"}},
	{ID: "WELL-003", Category: model.CategoryWellness, Tier: model.TierSafe,
		Prompt: "woman in bathtub with rose petals, spa atmosphere",
		Pose:   "relaxed spa pose, eyes closed",
		Lighting: "candle-lit warm glow", Angle: "tasteful above-shoulder framing",
		Tags: []string{"spa", "relaxation"}},

	// Beach
	{ID: "BEACH-001", Category: model.CategoryBeach, Tier: model.TierSafe,
		Prompt: "woman walking along shoreline at sunset",
		Pose:   "casual beach walk, hair in the wind",
		Lighting: "sunset backlight, golden tones", Angle: "wide shot, ocean backdrop",
		Tags: []string{"beach", "sunset", "ocean"}},
	{ID: "BEACH-002", Category: model.CategoryBeach, Tier: model.TierPremium,
		Prompt: "woman in swimwear lounging by infinity pool",
		Pose:   "poolside recline, sunglasses",
		Lighting: "bright midday sun", Angle: "elevated three-quarter view",
		Tags: []string{"pool", "swimwear", "summer"}},

	// Urban
	{ID: "URB-001", Category: model.CategoryUrban, Tier: model.TierSafe,
		Prompt: "woman in streetwear, city rooftop at dusk",
		Pose:   "leaning on railing, skyline behind",
		Lighting: "city lights, blue hour", Angle: "medium shot, shallow depth",
		Tags: []string{"city", "streetwear", "rooftop"}},
	{ID: "URB-002", Category: model.CategoryUrban, Tier: model.TierSafe,
		Prompt: "woman crossing busy street, candid style",
		Pose:   "mid-stride, looking away from camera",
		Lighting: "overcast soft light", Angle: "street photography framing",
		Tags: []string{"street", "candid"}},

	// Nature
	{ID: "NAT-001", Category: model.CategoryNature, Tier: model.TierSafe,
		Prompt: "woman hiking on forest trail",
		Pose:   "walking pose, backpack, looking ahead",
		Lighting: "dappled forest light", Angle: "trailing wide shot",
		Tags: []string{"hiking", "forest", "outdoor"}},
	{ID: "NAT-002", Category: model.CategoryNature, Tier: model.TierSafe,
		Prompt: "woman in wildflower field, summer afternoon",
		Pose:   "seated among flowers, relaxed",
		Lighting: "warm afternoon sun", Angle: "low angle through flowers",
		Tags: []string{"flowers", "field", "summer"}},

	// Fashion
	{ID: "FASH-001", Category: model.CategoryFashion, Tier: model.TierSafe,
		Prompt: "woman in tailored blazer, studio backdrop",
		Pose:   "editorial stance, strong lines",
		Lighting: "clean studio lighting", Angle: "three-quarter fashion framing",
		Tags: []string{"editorial", "blazer", "studio"}},
	{ID: "FASH-002", Category: model.CategoryFashion, Tier: model.TierPremium,
		Prompt: "woman in designer lingerie, bedroom setting",
		Pose:   "confident pose on bed",
		Lighting: "warm bedroom lighting", Angle: "three-quarter view, tasteful",
		Tags: []string{"lingerie", "designer"}},

	// Artistic
	{ID: "ART-001", Category: model.CategoryArtistic, Tier: model.TierPremium,
		Prompt: "silhouette portrait behind sheer fabric",
		Pose:   "arms raised, flowing fabric",
		Lighting: "single backlight, strong silhouette", Angle: "straight-on silhouette",
		Tags: []string{"silhouette", "fabric", "art"}},
	{ID: "ART-002", Category: model.CategoryArtistic, Tier: model.TierRestricted,
		Prompt: "figure study with projected light patterns",
		Pose:   "seated figure study, sculptural",
		Lighting: "projected pattern lighting", Angle: "side profile, artistic crop",
		Tags: []string{"figure", "light", "study"}},

	// Intimate
	{ID: "INT-001", Category: model.CategoryIntimate, Tier: model.TierRestricted,
		Prompt: "intimate boudoir portrait, soft morning light",
		Pose:   "reclined pose, sheets draped",
		Lighting: "diffused window light", Angle: "close crop, suggestive framing",
		Tags: []string{"boudoir", "intimate"}},
}

// nicheCategories maps an avatar niche to its preferred template
// categories, in priority order.
var nicheCategories = map[string][]model.TemplateCategory{
	"fitness":   {model.CategoryFitness, model.CategoryWellness, model.CategoryLifestyle},
	"wellness":  {model.CategoryWellness, model.CategoryLifestyle, model.CategoryNature},
	"glamour":   {model.CategoryGlamour, model.CategoryFashion, model.CategoryIntimate},
	"lifestyle": {model.CategoryLifestyle, model.CategoryUrban, model.CategoryNature},
	"beach":     {model.CategoryBeach, model.CategoryNature, model.CategoryLifestyle},
	"fashion":   {model.CategoryFashion, model.CategoryGlamour, model.CategoryUrban},
	"artistic":  {model.CategoryArtistic, model.CategoryGlamour, model.CategoryNature},
}

// defaultNicheCategories applies when the niche is unknown.
var defaultNicheCategories = []model.TemplateCategory{
	model.CategoryLifestyle, model.CategoryFashion, model.CategoryGlamour,
}
