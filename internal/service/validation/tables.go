package validation

import "github.com/mzemr/record-api/internal/model"

// Section labels shown by the correction UI.
const (
	sectionBaseInfo  = "基础信息"
	sectionDiagnosis = "诊断"
	sectionTreatment = "诊疗信息"
	sectionSurgery   = "手术/操作"
	sectionHerb      = "用药"
	sectionFee       = "费用"
)

// Rule tags, aliased locally to keep the rule tables readable.
const (
	ruleRequired            = model.RuleRequired
	ruleMaxLength           = model.RuleMaxLength
	ruleTimeOrder           = model.RuleTimeOrder
	ruleIDCard              = model.RuleIDCard
	ruleConditionalRequired = model.RuleConditionalRequired
	ruleSeqNo               = model.RuleSeqNo
	ruleMaxCount            = model.RuleMaxCount
	ruleInvalidType         = model.RuleInvalidType
	ruleRowComplete         = model.RuleRowComplete
	ruleRange               = model.RuleRange
	ruleDict                = model.RuleDict
	ruleFeeRelation         = model.RuleFeeRelation
)

// Header fields that must be present at submit. Ordered: the error list
// preserves this order so repeated validations are identical.
var requiredBaseFields = []string{
	"username", "jzkh", "xm", "xb", "csrq", "hy", "gj", "mz", "zjlb", "zjhm",
	"xzz", "lxdh", "ywgms", "jzsj", "jzksdm", "jzys", "jzyszc", "jzlx",
	"fz", "sy", "mzmtbhz",
}

// Header length limits in characters, from the upload-interface
// standard. Checked only when the field is present.
var baseMaxLens = []struct {
	field string
	max   int
}{
	{"username", 10},
	{"jzkh", 50},
	{"xm", 100},
	{"xb", 1},
	{"hy", 1},
	{"gj", 40},
	{"mz", 2},
	{"zjlb", 1},
	{"zjhm", 18},
	{"xzz", 200},
	{"lxdh", 40},
	{"ywgms", 1},
	{"gmyw", 500},
	{"qtgms", 1},
	{"qtgmy", 200},
	{"jzks", 100},
	{"jzksdm", 50},
	{"jzys", 40},
	{"jzyszc", 40},
	{"jzlx", 1},
	{"fz", 1},
	{"sy", 1},
	{"mzmtbhz", 1},
	{"jzhzfj", 1},
	{"jzhzqx", 1},
	{"hzzs", 1500},
}

// Governing code-set per dictionary-coded header field.
var baseDictSets = []struct {
	field   string
	setCode string
}{
	{"xb", "RC001"},
	{"hy", "RC002"},
	{"mz", "RC035"},
	{"zjlb", "RC038"},
	{"ywgms", "RC037"},
	{"qtgms", "RC037"},
	{"jzlx", "RC041"},
	{"jzksdm", "RC023"},
	{"jzyszc", "RC044"},
	{"fz", "RC016"},
	{"sy", "RC016"},
	{"mzmtbhz", "RC016"},
	{"jzhzfj", "RC042"},
	{"jzhzqx", "RC045"},
	{"gj", "COUNTRY"},
}

// medicationFlags are the five RC016-coded usage flags, in wire order.
var medicationFlags = []string{"xysy", "zcysy", "zyzjsy", "ctypsy", "pfklsy"}

// Well-known dictionary codes the rules branch on.
const (
	codeResidentIDCard  = "1" // RC038: 居民身份证
	codeAllergyYes      = "2" // RC037: 有
	codeEmergencyVisit  = "1" // RC041: 急诊
	codeAdmittedViaER   = "7" // RC045: 急诊转入院
	codeUsageYes        = "1" // RC016: 是
	setProcedure        = "ICD9CM3"
	setAnesthesiaMethod = "RC013"
	setSurgeryLevel     = "RC029"
	setHerbType         = "HERB_TYPE"
	setDrugRoute        = "DRUG_ROUTE"
	setMedicationFlag   = "RC016"
	setICD10            = "ICD10"
	setTCMDisease       = "TCM_DISEASE"
	setTCMSyndrome      = "TCM_SYNDROME"
)

type diagRule struct {
	diagType     model.DiagType
	min, max     int
	nameMax      int
	codeMax      int
	codeRequired bool
	setCode      string
}

// Cardinality and code-set per diagnosis type. Western-medicine codes
// are optional on entry; when present they must be valid ICD10.
var diagRules = []diagRule{
	{model.DiagTypeTCMDiseaseMain, 1, 1, 100, 30, true, setTCMDisease},
	{model.DiagTypeTCMSyndrome, 1, 2, 100, 30, true, setTCMSyndrome},
	{model.DiagTypeWMMain, 1, 1, 100, 50, false, setICD10},
	{model.DiagTypeWMOther, 0, 10, 100, 50, false, setICD10},
}

// Collection bounds from the upload template (fixed column blocks).
const (
	maxTcmOperations = 10
	maxSurgeries     = 5
	maxHerbDetails   = 40
)

// Every line item must be non-negative and no greater than the total.
var feeItemFields = []string{
	"ylfwf", "zlczf", "hlf", "qtfy", "blzdf", "zdf", "yxxzdf", "lczdxmf",
	"fsszlxmf", "zlf", "sszlf", "mzf", "ssf", "kff", "zyl_zyzd", "zyzl",
	"zywz", "zygs", "zcyjf", "zytnzl", "zygczl", "zytszl", "zyqt",
	"zytstpjg", "bzss", "xyf", "kjywf", "zcyf", "zyzjf", "zcyf1", "pfklf",
	"xf", "bdbblzpf", "qdbblzpf", "nxyzlzpf", "xbyzlzpf", "jcyyclf",
	"yyclf", "ssycxclf", "qtf",
}

// Top-level categories summed against the total. Sub-therapy fees
// (zywz, zygs, ...) and the anesthesia/surgery split are deliberately
// absent: their parent category is already in the list and counting
// both would double-book.
var feeTopLevelFields = []string{
	"ylfwf", "zlczf", "hlf", "qtfy", "blzdf", "zdf", "yxxzdf", "lczdxmf",
	"fsszlxmf", "sszlf", "kff", "zyl_zyzd", "zyzl", "zyqt", "xyf", "zcyf",
	"zcyf1", "xf", "bdbblzpf", "qdbblzpf", "nxyzlzpf", "xbyzlzpf",
	"jcyyclf", "yyclf", "ssycxclf", "qtf",
}
