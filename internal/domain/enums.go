package domain

import "fmt"

// EstimateType states how a hazard severity or impact figure was obtained.
// Construct via ParseEstimateType at trust boundaries.
type EstimateType string

const (
	EstimatePrimary   EstimateType = "primary"
	EstimateSecondary EstimateType = "secondary"
	EstimateModelled  EstimateType = "modelled"
)

var validEstimateTypes = map[EstimateType]bool{
	EstimatePrimary:   true,
	EstimateSecondary: true,
	EstimateModelled:  true,
}

// ParseEstimateType constructs an EstimateType from external input.
func ParseEstimateType(s string) (EstimateType, error) {
	e := EstimateType(s)
	if !e.IsValid() {
		return "", fmt.Errorf("%w: estimate type %q", ErrInvalidDraftRecord, s)
	}
	return e, nil
}

// IsValid reports whether the estimate type is one of the supported values.
func (e EstimateType) IsValid() bool { return validEstimateTypes[e] }

func (e EstimateType) String() string { return string(e) }

// ImpactCategory is the exposed asset or population an impact figure counts.
type ImpactCategory string

const (
	CategoryAllPeople                         ImpactCategory = "allpeop"
	CategoryCrop                              ImpactCategory = "crop"
	CategoryWomen                             ImpactCategory = "women"
	CategoryMen                               ImpactCategory = "men"
	CategoryElderly                           ImpactCategory = "elder"
	CategoryChildrenUnder14                   ImpactCategory = "chld14"
	CategoryChildrenUnder18                   ImpactCategory = "chld18"
	CategoryWheelchairUsers                   ImpactCategory = "wheelch"
	CategoryRoad                              ImpactCategory = "road"
	CategoryTrainLines                        ImpactCategory = "trainlin"
	CategoryVulnerableEmployment              ImpactCategory = "vulempl"
	CategoryBuildings                         ImpactCategory = "build"
	CategoryReconstructionCosts               ImpactCategory = "reccost"
	CategoryHospitals                         ImpactCategory = "hosp"
	CategoryEducationCenters                  ImpactCategory = "educ"
	CategoryLocalCurrency                     ImpactCategory = "loccur"
	CategoryGlobalCurrency                    ImpactCategory = "globdate"
	CategoryInflationAdjustedLocalCurrency    ImpactCategory = "infloccur"
	CategoryInflationAdjustedGlobalCurrency   ImpactCategory = "infglobdate"
	CategoryUSDUnsure                         ImpactCategory = "usdunsure"
	CategoryAidInflationAdjusted              ImpactCategory = "aidinf"
	CategoryAidNonInflationAdjusted           ImpactCategory = "aidnoninf"
	CategoryAidUnspecified                    ImpactCategory = "aidunkinf"
	CategoryReconstructionInflationAdjusted   ImpactCategory = "ecorecinf"
	CategoryReconstructionNonInflation        ImpactCategory = "ecorecnoninf"
	CategoryReconstructionUnspecified         ImpactCategory = "ecorecunkinf"
	CategoryInsuredInflationAdjusted          ImpactCategory = "ecoinsinf"
	CategoryInsuredNonInflationAdjusted       ImpactCategory = "ecoinsnoninf"
	CategoryInsuredUnspecified                ImpactCategory = "ecoinsunkinf"
	CategoryUninsuredInflationAdjusted        ImpactCategory = "ecouninsinf"
	CategoryUninsuredNonInflationAdjusted     ImpactCategory = "ecouninsnoninf"
	CategoryUninsuredUnspecified              ImpactCategory = "ecouninsunkinf"
	CategoryTotalCostInflationAdjusted        ImpactCategory = "ecototinf"
	CategoryTotalCostNonInflationAdjusted     ImpactCategory = "ecototnoninf"
	CategoryTotalCostUnspecified              ImpactCategory = "ecototunkinf"
	CategoryDirectCostsInflationAdjusted      ImpactCategory = "ecodirtotinf"
	CategoryDirectCostsNonInflationAdjusted   ImpactCategory = "ecodirtotnoninf"
	CategoryDirectCostsUnspecified            ImpactCategory = "ecodirtotunkinf"
	CategoryIndirectCostsInflationAdjusted    ImpactCategory = "ecoindirtotinf"
	CategoryIndirectCostsNonInflationAdjusted ImpactCategory = "ecoindirtotnoninf"
	CategoryIndirectCostsUnspecified          ImpactCategory = "ecoindirtotunkinf"
	CategoryCattle                            ImpactCategory = "cattle"
	CategoryAlertScore                        ImpactCategory = "alert"
	CategoryIFRCAidUnspecified                ImpactCategory = "ecoifrcall"
)

// impactCategoryLabels doubles as the allowlist for ImpactCategory.
var impactCategoryLabels = map[ImpactCategory]string{
	CategoryAllPeople:                         "People (All Demographics)",
	CategoryCrop:                              "Crops",
	CategoryWomen:                             "Women",
	CategoryMen:                               "Men",
	CategoryElderly:                           "Elderly (Over 65)",
	CategoryChildrenUnder14:                   "Children (Under 14)",
	CategoryChildrenUnder18:                   "Children (Under 18)",
	CategoryWheelchairUsers:                   "Wheelchair Users",
	CategoryRoad:                              "Road",
	CategoryTrainLines:                        "Train-lines",
	CategoryVulnerableEmployment:              "Population in Vulnerable Employment",
	CategoryBuildings:                         "Buildings",
	CategoryReconstructionCosts:               "Reconstruction Costs",
	CategoryHospitals:                         "Hospitals",
	CategoryEducationCenters:                  "Education Centers",
	CategoryLocalCurrency:                     "Local Currency [Date of Event]",
	CategoryGlobalCurrency:                    "Global/Regional Currency (e.g. USD)",
	CategoryInflationAdjustedLocalCurrency:    "Inflation-Adjusted Local Currency [Date of Event]",
	CategoryInflationAdjustedGlobalCurrency:   "Inflation-Adjusted Global/Regional Currency (USD)",
	CategoryUSDUnsure:                         "USD [Unsure]",
	CategoryAidInflationAdjusted:              "Aid Contributions Inflation-Adjusted",
	CategoryAidNonInflationAdjusted:           "Aid Contributions Non-Inflation-Adjusted",
	CategoryAidUnspecified:                    "Aid Contributions (Unspecified-Inflation-Adjustment)",
	CategoryReconstructionInflationAdjusted:   "Reconstruction Costs Inflation-Adjusted",
	CategoryReconstructionNonInflation:        "Reconstruction Costs Non-Inflation-Adjusted",
	CategoryReconstructionUnspecified:         "Reconstruction Costs (Unspecified-Inflation-Adjustment)",
	CategoryInsuredInflationAdjusted:          "Insured Costs Inflation-Adjusted",
	CategoryInsuredNonInflationAdjusted:       "Insured Costs Non-Inflation-Adjusted",
	CategoryInsuredUnspecified:                "Insured Costs (Unspecified-Inflation-Adjustment)",
	CategoryUninsuredInflationAdjusted:        "Uninsured Costs Inflation-Adjusted",
	CategoryUninsuredNonInflationAdjusted:     "Uninsured Costs Non-Inflation-Adjusted",
	CategoryUninsuredUnspecified:              "Uninsured Costs (Unspecified-Inflation-Adjustment)",
	CategoryTotalCostInflationAdjusted:        "Total Cost Inflation-Adjusted",
	CategoryTotalCostNonInflationAdjusted:     "Total Cost Non-Inflation-Adjusted",
	CategoryTotalCostUnspecified:              "Total Cost (Unspecified-Inflation-Adjustment)",
	CategoryDirectCostsInflationAdjusted:      "Total Direct Costs Inflation-Adjusted",
	CategoryDirectCostsNonInflationAdjusted:   "Total Direct Costs Non-Inflation-Adjusted",
	CategoryDirectCostsUnspecified:            "Total Direct Costs (Unspecified-Inflation-Adjustment)",
	CategoryIndirectCostsInflationAdjusted:    "Total Indirect Costs Inflation-Adjusted",
	CategoryIndirectCostsNonInflationAdjusted: "Total Indirect Costs Non-Inflation-Adjusted",
	CategoryIndirectCostsUnspecified:          "Total Indirect Costs (Unspecified-Inflation-Adjustment)",
	CategoryCattle:                            "Cattle",
	CategoryAlertScore:                        "Alertscore",
	CategoryIFRCAidUnspecified:                "IFRC Aid Contributions (Unspecified-Inflation-Adjustment)",
}

// ParseImpactCategory constructs an ImpactCategory from external input.
func ParseImpactCategory(s string) (ImpactCategory, error) {
	c := ImpactCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: impact category %q", ErrInvalidDraftRecord, s)
	}
	return c, nil
}

func (c ImpactCategory) IsValid() bool {
	_, ok := impactCategoryLabels[c]
	return ok
}

// Label returns the display label, or "" for an invalid category.
func (c ImpactCategory) Label() string { return impactCategoryLabels[c] }

func (c ImpactCategory) String() string { return string(c) }

// ImpactType is what happened to the exposed category.
type ImpactType string

const (
	ImpactUndefined             ImpactType = "unspec"
	ImpactUnaffected            ImpactType = "unaff"
	ImpactDamaged               ImpactType = "dama"
	ImpactDestroyed             ImpactType = "dest"
	ImpactPotentiallyDamaged    ImpactType = "potdam"
	ImpactTotalAffected         ImpactType = "affe"
	ImpactDirectlyAffected      ImpactType = "diraffe"
	ImpactIndirectlyAffected    ImpactType = "indaffe"
	ImpactDeaths                ImpactType = "deat"
	ImpactMissing               ImpactType = "miss"
	ImpactInjured               ImpactType = "inju"
	ImpactEvacuated             ImpactType = "vac"
	ImpactRelocated             ImpactType = "reloc"
	ImpactAssisted              ImpactType = "assist"
	ImpactEmergencySheltered    ImpactType = "emshel"
	ImpactTemporaryAccommodated ImpactType = "tempacc"
	ImpactLongTermAccommodated  ImpactType = "longacc"
	ImpactInNeed                ImpactType = "need"
	ImpactTargeted              ImpactType = "targ"
	ImpactDisrupted             ImpactType = "disr"
	ImpactLossCost              ImpactType = "cost"
	ImpactHomeless              ImpactType = "homles"
	ImpactInternallyDisplaced   ImpactType = "idp"
	ImpactExternallyDisplaced   ImpactType = "extdisp"
	ImpactDisplaced             ImpactType = "disp"
	ImpactAlertScore            ImpactType = "alert"
)

var impactTypeLabels = map[ImpactType]string{
	ImpactUndefined:             "Unspecified",
	ImpactUnaffected:            "Unaffected",
	ImpactDamaged:               "Damaged",
	ImpactDestroyed:             "Destroyed",
	ImpactPotentiallyDamaged:    "Potentially Damaged",
	ImpactTotalAffected:         "Total Affected",
	ImpactDirectlyAffected:      "Directly Affected",
	ImpactIndirectlyAffected:    "Indirectly Affected",
	ImpactDeaths:                "Deaths",
	ImpactMissing:               "Missing",
	ImpactInjured:               "Injured",
	ImpactEvacuated:             "Evacuated",
	ImpactRelocated:             "Relocated",
	ImpactAssisted:              "Assisted (Received Aid/Support)",
	ImpactEmergencySheltered:    "Emergency Sheltered",
	ImpactTemporaryAccommodated: "Temporary Accommodated",
	ImpactLongTermAccommodated:  "Long-Term Accommodated",
	ImpactInNeed:                "In Need",
	ImpactTargeted:              "Targeted",
	ImpactDisrupted:             "Disrupted",
	ImpactLossCost:              "Loss (Cost)",
	ImpactHomeless:              "Homeless",
	ImpactInternallyDisplaced:   "Internally Displaced Persons (IDPs)",
	ImpactExternallyDisplaced:   "Refugees, Asylum Seekers and Externally Displaced Persons",
	ImpactDisplaced:             "Displaced Persons (Internal & External)",
	ImpactAlertScore:            "Alertscore",
}

// ParseImpactType constructs an ImpactType from external input.
func ParseImpactType(s string) (ImpactType, error) {
	t := ImpactType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: impact type %q", ErrInvalidDraftRecord, s)
	}
	return t, nil
}

func (t ImpactType) IsValid() bool {
	_, ok := impactTypeLabels[t]
	return ok
}

// Label returns the display label, or "" for an invalid type.
func (t ImpactType) Label() string { return impactTypeLabels[t] }

func (t ImpactType) String() string { return string(t) }
