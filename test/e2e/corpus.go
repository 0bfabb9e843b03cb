// Package e2e provides end-to-end tests over a synthetic letter corpus.
package e2e

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Letter is one synthetic complete response letter in the e2e corpus. The
// fields mirror what the FDA bulk dataset publishes; classification fields
// such as product name stay empty until enrichment fills them in.
type Letter struct {
	AppNumber  string
	LetterDate string // MM/DD/YYYY, as published
	Company    string
	Status     string // approved or unapproved
	FileName   string
	Text       string
}

// ID returns the stable letter id the dataset loader derives: the
// application number with spaces and hyphens stripped, an underscore, and
// the letter date as YYYYMMDD (hashed when unparseable, as the loader does).
func (l *Letter) ID() string {
	appNum := strings.NewReplacer(" ", "", "-", "").Replace(l.AppNumber)
	t, err := time.Parse("1/2/2006", l.LetterDate)
	if err != nil {
		sum := md5.Sum([]byte(l.LetterDate))
		return appNum + "_" + hex.EncodeToString(sum[:])[:8]
	}
	return appNum + "_" + t.Format("20060102")
}

// QueryTestCase defines a query and the letter id(s) that must appear in
// search results. At least one of ExpectedLetterIDs must be present.
type QueryTestCase struct {
	Query             string
	ExpectedLetterIDs []string
	Description       string
}

// Corpus holds letters and query test cases for e2e tests.
type Corpus struct {
	Letters      []Letter
	TestCases    []QueryTestCase
	TotalLetters int
	TotalQueries int
}

// Approved returns the letters belonging to the approved feed.
func (c *Corpus) Approved() []Letter {
	return c.byStatus("approved")
}

// Unapproved returns the letters belonging to the unapproved feed.
func (c *Corpus) Unapproved() []Letter {
	return c.byStatus("unapproved")
}

func (c *Corpus) byStatus(status string) []Letter {
	var out []Letter
	for _, l := range c.Letters {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// BuildCorpus returns a corpus of 40 letters with varied deficiency content
// and multiple query test cases. Each letter carries a unique signature
// phrase so queries can assert the correct letter is returned.
func BuildCorpus() *Corpus {
	letters := buildLetters()
	cases := buildQueryTestCases(letters)
	return &Corpus{
		Letters:      letters,
		TestCases:    cases,
		TotalLetters: len(letters),
		TotalQueries: len(cases),
	}
}

func buildLetters() []Letter {
	// Each deficiency topic appears in exactly one letter; the signature
	// phrase is repeated so keyword scoring favors the right letter.
	topics := []struct {
		company string
		body    string
	}{
		{"Meridian Therapeutics", "The thorough QT prolongation study did not adequately characterize the effect of veltrexafine on cardiac repolarization. A repeat thorough QT prolongation study with supratherapeutic exposure is required."},
		{"Baltex Biosciences", "The pivotal trial failed to demonstrate statistical significance on the primary efficacy endpoint. An additional adequate and well-controlled trial of omiprazine is needed to establish efficacy."},
		{"Corvana Pharma", "Transaminase elevations exceeding three times the upper limit of normal were observed in long-term dosing. The hepatotoxicity signal must be characterized before approval."},
		{"Helixion Labs", "The carcinogenicity study in transgenic mice was incomplete at the time of submission. Final reports of the carcinogenicity study in transgenic mice must be provided."},
		{"Nordvik Pharmaceuticals", "Sterility assurance for the aseptic filling lines has not been demonstrated. Media fill failures on the aseptic filling lines remain unresolved."},
		{"Quillon Biotech", "The dissolution method lacks discriminating power for the proposed commercial formulation. A dissolution method with demonstrated discriminating power is required for release testing."},
		{"Sandmere Health", "Container closure integrity testing was not performed on aged stability samples. Provide container closure integrity data through the proposed shelf life."},
		{"Tessara Oncology", "A nitrosamine impurity was detected above the acceptable intake limit. The nitrosamine impurity risk assessment and control strategy are deficient."},
		{"Uveda Biologics", "Unresolved Form 483 observations from the preapproval inspection preclude approval. The facility must address all Form 483 observations and implement corrective actions."},
		{"Vantrell Pharma", "Data integrity deficiencies were identified in the quality control laboratory. Audit trails in the quality control laboratory were disabled during release testing."},
		{"Westline Therapeutics", "The proposed medication guide does not adequately communicate the serious risks. A revised medication guide and REMS assessment plan must be submitted."},
		{"Ardenfield Labs", "The human factors validation study for the autoinjector identified critical use errors. A repeat human factors validation study with the revised autoinjector labeling is required."},
		{"Bryncove Pharma", "The fasting bioequivalence study failed the 90 percent confidence interval criteria. A new fasting bioequivalence study with the to-be-marketed formulation is required."},
		{"Cindral Biosciences", "The anti-drug antibody assay requires revalidation with drug tolerance acceptable for trough concentrations. Immunogenicity data generated with the prior anti-drug antibody assay are unreliable."},
		{"Dovetail Medicines", "The pediatric study plan deferral request lacks adequate justification. An agreed initial pediatric study plan must be in place before resubmission."},
		{"Eastgate Biologics", "The stability data do not support the proposed shelf life of 36 months. Additional long-term stability data are required to support the proposed shelf life."},
		{"Fenmore Pharma", "The potency assay for drug product release is not adequately qualified. Potency assay qualification must include accuracy, precision, and specificity."},
		{"Glenrow Therapeutics", "Analytical comparability between clinical and commercial lots has not been established. Side-by-side analytical comparability data are needed for the process change."},
		{"Harwick Biotech", "The delivery device has not been shown to meet essential performance requirements. Design verification for essential performance requirements is incomplete."},
		{"Ilexa Pharmaceuticals", "Environmental monitoring excursions in grade A areas were inadequately investigated. Recurring environmental monitoring excursions indicate a loss of control."},
		{"Meridian Therapeutics", "A drug interaction study with strong CYP3A4 inhibitors was not conducted. The effect of CYP3A4 inhibitors on exposure must be characterized to support dosing."},
		{"Baltex Biosciences", "A dedicated renal impairment pharmacokinetic study is required. Dosing recommendations for severe renal impairment cannot be derived from the population analysis."},
		{"Corvana Pharma", "Hepatic impairment dosing recommendations are not supported by the submitted data. A dedicated hepatic impairment study in Child-Pugh B and C subjects is required."},
		{"Helixion Labs", "The dose-ranging data are insufficient to support the proposed regimen. An additional dose-ranging trial evaluating lower doses is required."},
		{"Nordvik Pharmaceuticals", "The patient-reported outcome instrument was not validated in the target population. Content validity evidence for the patient-reported outcome instrument must be provided."},
		{"Quillon Biotech", "The clinical site inspection revealed significant protocol deviations at two sites. Data from the inspected sites cannot be relied upon without further clinical site inspection findings."},
		{"Sandmere Health", "Sensitivity analyses addressing missing data were not prespecified. Tipping point sensitivity analyses for missing data must accompany the resubmission."},
		{"Tessara Oncology", "The process validation lifecycle approach is incomplete for the drug substance. Stage two process validation batches must be manufactured at commercial scale."},
		{"Uveda Biologics", "Viral clearance validation studies did not evaluate worst-case conditions. Repeat viral clearance validation with aged resins is required."},
		{"Vantrell Pharma", "The novel excipient has not been qualified for chronic administration. Safety qualification of the novel excipient requires additional toxicology studies."},
		{"Westline Therapeutics", "The extractables and leachables assessment for the prefilled syringe is deficient. A complete extractables and leachables study through end of shelf life is required."},
		{"Ardenfield Labs", "Analytical similarity for tier one quality attributes has not been demonstrated. The statistical approach to tier one attributes deviated from the agreed plan."},
		{"Bryncove Pharma", "Design controls documentation for the combination product is incomplete. Provide design history file records covering the combination product constituent parts."},
		{"Cindral Biosciences", "The reproductive toxicology segment two study identified fetal malformations. A complete reproductive toxicology package is required before labeling negotiations."},
		{"Dovetail Medicines", "The abuse potential assessment does not support the proposed scheduling recommendation. A human abuse potential study is required for the modified-release formulation."},
		{"Eastgate Biologics", "The external control arm derived from real-world evidence is inadequately matched. Comparative claims based on real-world evidence cannot be supported."},
		{"Fenmore Pharma", "The bioanalytical laboratory audit identified unreported failed runs. All bioanalytical data must be reanalyzed and the audit findings addressed."},
		{"Glenrow Therapeutics", "Batch record review discrepancies were identified for three registration lots. Executed batch record review procedures must be revised."},
		{"Harwick Biotech", "Carton labeling lacks sufficient differentiation between the two strengths. Revised carton labeling is required to prevent medication errors."},
		{"Ilexa Pharmaceuticals", "The smallest marketed container is not child-resistant as required. Child-resistant packaging data must be provided for all configurations."},
	}

	prefixes := []string{"NDA 21%d", "BLA 761%03d", "ANDA 214%03d"}
	out := make([]Letter, 0, len(topics))
	for i, topic := range topics {
		var appNum string
		switch i % 3 {
		case 0:
			appNum = fmt.Sprintf(prefixes[0], 1000+i)
		case 1:
			appNum = fmt.Sprintf(prefixes[1], i)
		default:
			appNum = fmt.Sprintf(prefixes[2], i)
		}
		status := "approved"
		if i%2 == 1 {
			status = "unapproved"
		}
		date := fmt.Sprintf("%d/%d/%d", i%12+1, i%27+1, 2019+i%6)
		out = append(out, Letter{
			AppNumber:  appNum,
			LetterDate: date,
			Company:    topic.company,
			Status:     status,
			FileName:   fmt.Sprintf("crl-%03d.pdf", i+1),
			Text: fmt.Sprintf("We have completed our review of your application and have determined "+
				"that we cannot approve it in its present form. %s", topic.body),
		})
	}
	return out
}

func buildQueryTestCases(letters []Letter) []QueryTestCase {
	if len(letters) == 0 {
		return nil
	}
	// Each query is a verbatim fragment of exactly one letter body.
	phrases := []string{
		"thorough QT prolongation study",
		"carcinogenicity study in transgenic mice",
		"aseptic filling lines",
		"dissolution method lacks discriminating power",
		"container closure integrity",
		"nitrosamine impurity",
		"Form 483 observations",
		"quality control laboratory",
		"medication guide",
		"human factors validation study",
		"fasting bioequivalence study",
		"anti-drug antibody assay",
		"pediatric study plan",
		"proposed shelf life",
		"potency assay",
		"essential performance requirements",
		"environmental monitoring excursions",
		"CYP3A4 inhibitors",
		"renal impairment pharmacokinetic study",
		"patient-reported outcome instrument",
		"viral clearance validation",
		"extractables and leachables",
		"reproductive toxicology",
		"abuse potential assessment",
		"real-world evidence",
		"bioanalytical laboratory audit",
		"batch record review",
		"child-resistant",
	}
	var cases []QueryTestCase
	used := make(map[string]bool)
	for _, p := range phrases {
		for i := range letters {
			l := &letters[i]
			if containsPhrase(l, p) && !used[l.ID()] {
				cases = append(cases, QueryTestCase{
					Query:             p,
					ExpectedLetterIDs: []string{l.ID()},
					Description:       fmt.Sprintf("query %q should return letter %s", p, l.ID()),
				})
				used[l.ID()] = true
				break
			}
		}
	}
	return cases
}

func containsPhrase(l *Letter, phrase string) bool {
	return strings.Contains(l.Text, phrase)
}
