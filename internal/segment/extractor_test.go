package segment

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pci-dss-extractor/internal/grammar"
)

func TestExtract_EnglishInline(t *testing.T) {
	e := New(grammar.English())

	reqs := e.Extract("1.1 Install and maintain network security controls. Testing Procedures: 1.1.a Examine documentation for all controls. Guidance: Ensure the roles are understood.")

	require.Len(t, reqs, 1)
	assert.Equal(t, "1.1", reqs[0].ReqNum)
	assert.Equal(t, "Install and maintain network security controls.", reqs[0].Text)
	assert.Equal(t, []string{"1.1.a Examine documentation for all controls."}, reqs[0].Tests)
	assert.Equal(t, "Ensure the roles are understood.", reqs[0].Guidance)
}

func TestExtract_FrenchInline(t *testing.T) {
	e := New(grammar.French())

	reqs := e.Extract("2.3 Chiffrer tous les accès administratifs. Procédures de test : 2.3.a Examiner les configurations système. Conseils : Assurez-vous que le chiffrement est robuste.")

	require.Len(t, reqs, 1)
	assert.Equal(t, "2.3", reqs[0].ReqNum)
	assert.Equal(t, "Chiffrer tous les accès administratifs.", reqs[0].Text)
	assert.Equal(t, []string{"2.3.a Examiner les configurations système."}, reqs[0].Tests)
	assert.Equal(t, "Assurez-vous que le chiffrement est robuste.", reqs[0].Guidance)
}

func TestExtract_NoRequirements(t *testing.T) {
	e := New(grammar.English())

	reqs := e.Extract("Payment Card Industry\nSelf-Assessment Questionnaire D\nNothing numbered here.")

	require.NotNil(t, reqs)
	assert.Empty(t, reqs)
}

func TestExtract_GuidanceWithoutTests(t *testing.T) {
	e := New(grammar.English())

	reqs := e.Extract("3.2 Storage of account data is kept to a minimum.\nGuidance\nRetention policies limit exposure.")

	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Tests)
	assert.Empty(t, reqs[0].Tests)
	assert.Equal(t, "Retention policies limit exposure.", reqs[0].Guidance)

	data, err := json.Marshal(reqs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tests":[]`)
	assert.NotContains(t, string(data), "applicability")
}

func TestExtract_MultiLineBlocks(t *testing.T) {
	text := strings.Join([]string{
		"Front matter that mentions 1.1 in passing",
		"Table of contents",
		"1.2.1 Configuration standards for NSC rulesets are",
		"defined, implemented and maintained.",
		"• Examine the configuration standards to verify",
		"they are in accordance with all elements.",
		"• Examine configuration settings for NSC rulesets.",
		"Applicability Notes",
		"This requirement applies to all network security controls.",
		"Guidance",
		"Implementing these standards helps ensure",
		"controls are consistently configured.",
		"1.2.2 All changes to network connections are approved.",
		"• Interview responsible personnel to verify approvals.",
	}, "\n")

	reqs := New(grammar.English()).Extract(text)

	require.Len(t, reqs, 2)

	first := reqs[0]
	assert.Equal(t, "1.2.1", first.ReqNum)
	assert.Equal(t, "Configuration standards for NSC rulesets are defined, implemented and maintained.", first.Text)
	assert.Equal(t, []string{
		"Examine the configuration standards to verify they are in accordance with all elements.",
		"Examine configuration settings for NSC rulesets.",
	}, first.Tests)
	assert.Equal(t, "This requirement applies to all network security controls.", first.Applicability)
	assert.Equal(t, "Implementing these standards helps ensure controls are consistently configured.", first.Guidance)

	assert.Equal(t, "1.2.2", reqs[1].ReqNum)
	assert.Equal(t, []string{"Interview responsible personnel to verify approvals."}, reqs[1].Tests)
	assert.Empty(t, reqs[1].Guidance)
}

func TestExtract_FrontMatterDiscarded(t *testing.T) {
	text := "Introduction\nConseils généraux pour le lecteur\n4.1 Les processus sont définis.\n"

	reqs := New(grammar.French()).Extract(text)

	require.Len(t, reqs, 1)
	assert.Equal(t, "4.1", reqs[0].ReqNum)
	assert.Empty(t, reqs[0].Guidance)
}

func TestExtract_DocumentOrderAndDuplicates(t *testing.T) {
	text := "10.2 Audit logs are enabled.\n2.1 Processes are defined.\n10.2 Audit logs are enabled.\n"

	reqs := New(grammar.English()).Extract(text)

	require.Len(t, reqs, 3)
	assert.Equal(t, "10.2", reqs[0].ReqNum)
	assert.Equal(t, "2.1", reqs[1].ReqNum)
	assert.Equal(t, "10.2", reqs[2].ReqNum)
}

func TestExtract_ChapterRange(t *testing.T) {
	text := "1.1 Valid requirement text.\n2024.10 Released in October\n13.1 Not a chapter of the standard\n"

	reqs := New(grammar.English()).Extract(text)

	require.Len(t, reqs, 1)
	assert.Equal(t, "1.1", reqs[0].ReqNum)
	assert.Equal(t, "Valid requirement text. 2024.10 Released in October 13.1 Not a chapter of the standard", reqs[0].Text)
}

func TestExtract_HyphenatedWrap(t *testing.T) {
	text := "7.2.1 Un modèle de con-\ntrôle d'accès est défini.\n• Examiner les politiques et procé-\ndures documentées."

	reqs := New(grammar.French()).Extract(text)

	require.Len(t, reqs, 1)
	assert.Equal(t, "Un modèle de contrôle d'accès est défini.", reqs[0].Text)
	assert.Equal(t, []string{"Examiner les politiques et procédures documentées."}, reqs[0].Tests)
}

func TestExtract_PageFurnitureRemoved(t *testing.T) {
	text := strings.Join([]string{
		"8.3.1 All user access is authenticated.",
		"In Place In Place with CCW Not Applicable Not Tested Not in Place",
		"PCI DSS SAQ D for Merchants, v4.0.1 October 2024 Page 42",
		"© 2006-2024 PCI Security Standards Council, LLC. All Rights Reserved.",
		"(Check one response for each requirement)",
		"♦ Refer to Appendix A for details.",
		"• Examine system configuration settings for authentication.",
	}, "\n")

	reqs := New(grammar.English()).Extract(text)

	require.Len(t, reqs, 1)
	assert.Equal(t, "All user access is authenticated.", reqs[0].Text)
	assert.Equal(t, []string{"Examine system configuration settings for authentication."}, reqs[0].Tests)
}

func TestExtract_ShortAndDuplicateTests(t *testing.T) {
	text := "5.2 Anti-malware is deployed.\n• Examine.\n• Examine anti-malware configurations.\n• Examine anti-malware configurations."

	reqs := New(grammar.English()).Extract(text)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"Examine anti-malware configurations."}, reqs[0].Tests)

	reqs = New(grammar.English(), WithMinTestLength(0)).Extract(text)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"Examine.", "Examine anti-malware configurations."}, reqs[0].Tests)
}

func TestExtract_Idempotent(t *testing.T) {
	text := "6.1 Secure software is developed.\nTesting Procedures: 6.1.a Examine documentation.\nGuidance: Keep it current.\n6.2 Bespoke software is reviewed.\n"
	e := New(grammar.English())

	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, first, e.Extract(text))
		}()
	}
	wg.Wait()
}

func TestExtract_NilGrammar(t *testing.T) {
	reqs := New(nil).Extract("1.1 Something")
	assert.NotNil(t, reqs)
	assert.Empty(t, reqs)
}

func TestRequirementFlags(t *testing.T) {
	r := Requirement{ReqNum: "1.1", Tests: []string{"Examine things carefully"}}
	assert.True(t, r.HasTests())
	assert.False(t, r.HasGuidance())
}
