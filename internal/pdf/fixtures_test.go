package pdf

var samplePages = []string{
	"Payment Card Industry Self-Assessment Questionnaire D",
	"1.1 Install and maintain network security controls. Testing Procedures: 1.1.a Examine documentation for all controls. Guidance: Ensure the roles are understood.",
	"1.2 Network security controls are configured. Testing Procedures: 1.2.a Examine configuration standards for rulesets.",
}
