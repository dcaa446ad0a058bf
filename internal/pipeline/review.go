package pipeline

import (
	"fmt"
	"strings"

	"github.com/cadre-oss/reqcheck/internal/roles"
)

// Stage names of the review pipeline.
const (
	StageRequirementAnalysis = "requirement_analysis"
	StageCodeAnalysis        = "code_analysis"
	StageAlignment           = "alignment"
	StageReferenceCode       = "reference_code"
	StageComparison          = "comparison"
	StageReport              = "report"
	StageQuality             = "quality"
	StageSummary             = "summary"
)

// Memory keys written or seeded by the review pipeline.
const (
	KeyRequirementAnalysis = "requirement_analysis"
	KeyCodeAnalysis        = "code_analysis"
	KeyImplementation      = "implementation"
	KeyAlignment           = "alignment_analysis"
	KeyReferenceCode       = "reference_code"
	KeyCodes               = "codes"
	KeyComparison          = "code_comparison"
	KeyFindings            = "findings"
	KeyReport              = "report"
	KeyEvaluationInput     = "evaluation_input"
	KeyQuality             = "quality_evaluation"
	KeyFullReport          = "full_report"
	KeySummary             = "summary"
)

// ReviewName is the pipeline name recorded in run history.
const ReviewName = "review"

// ReviewOptions selects optional review stages.
type ReviewOptions struct {
	CodeAnalysis bool
}

// ReviewStages returns the requirements/code review topology.
func ReviewStages(opts ReviewOptions) []Stage {
	stages := []Stage{
		{
			Name:  StageRequirementAnalysis,
			Role:  roles.RequirementAnalyzer,
			Input: "Analyze the requirements for logical errors, ambiguities and contradictions.",
			Read:  KeyRequirementsRAG,
			Write: KeyRequirementAnalysis,
		},
	}

	if opts.CodeAnalysis {
		stages = append(stages, Stage{
			Name:  StageCodeAnalysis,
			Role:  roles.CodeAnalyzer,
			Input: "Analyze the source code for logical and functional errors and for violations of architectural requirements.",
			Read:  KeyCode,
			Write: KeyCodeAnalysis,
		})
	}

	stages = append(stages,
		Stage{
			Name:  StageAlignment,
			Role:  roles.AlignmentChecker,
			Input: "Match the requirements against the code, find mismatches (missing features, wrong ranges, architectural violations) and give recommendations.",
			Read:  KeyImplementation,
			Write: KeyAlignment,
			Seed: func(in Inputs, _ Outputs) string {
				return fmt.Sprintf("Requirements:\n%s\n\nCode:\n%s", in.Requirements, in.Code)
			},
		},
		Stage{
			Name:  StageReferenceCode,
			Role:  roles.ReferenceCoder,
			Read:  KeyRequirements,
			Write: KeyReferenceCode,
		},
		Stage{
			Name:  StageComparison,
			Role:  roles.ComparativeAnalyzer,
			Input: "Compare the user's code with the reference code for mathematical correctness and list the discrepancies, or state that there are none. Ignore style and architecture.",
			Read:  KeyCodes,
			Write: KeyComparison,
			Uses:  []string{StageReferenceCode},
			Seed: func(in Inputs, out Outputs) string {
				return fmt.Sprintf("User code:\n%s\n\nReference code:\n%s", in.Code, out.Get(StageReferenceCode))
			},
		},
		Stage{
			Name:  StageReport,
			Role:  roles.ReportGenerator,
			Input: "Mode: detailed report. Include every detail for each finding.",
			Read:  KeyFindings,
			Write: KeyReport,
			Uses:  findingStages(opts),
			Seed: func(_ Inputs, out Outputs) string {
				return findings(opts, out)
			},
		},
		Stage{
			Name:  StageQuality,
			Role:  roles.QualityEvaluator,
			Input: "Rate how well the requirements and code match on the given scale and add a short comment.",
			Read:  KeyEvaluationInput,
			Write: KeyQuality,
			Uses:  []string{StageReport},
			Seed: func(_ Inputs, out Outputs) string {
				return out.Get(StageReport)
			},
		},
		Stage{
			Name:  StageSummary,
			Role:  roles.Summarizer,
			Input: "Write the summarized report in the given structure.",
			Read:  KeyFullReport,
			Write: KeySummary,
			Uses:  []string{StageReport, StageQuality},
			Seed: func(_ Inputs, out Outputs) string {
				return FinalReport(out)
			},
		},
	)

	return stages
}

func findingStages(opts ReviewOptions) []string {
	uses := []string{StageRequirementAnalysis, StageAlignment, StageComparison}
	if opts.CodeAnalysis {
		uses = append(uses, StageCodeAnalysis)
	}
	return uses
}

func findings(opts ReviewOptions, out Outputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement analysis results:\n%s\n\n", out.Get(StageRequirementAnalysis))
	if opts.CodeAnalysis {
		fmt.Fprintf(&b, "Code analysis results:\n%s\n\n", out.Get(StageCodeAnalysis))
	}
	fmt.Fprintf(&b, "Alignment results:\n%s\n\n", out.Get(StageAlignment))
	fmt.Fprintf(&b, "Math correctness results:\n%s\n", out.Get(StageComparison))
	return b.String()
}

// FinalReport is the detailed report with the quality evaluation appended.
func FinalReport(out Outputs) string {
	return out.Get(StageReport) + "\n\nRequirements and code quality evaluation:\n" + out.Get(StageQuality)
}

// FinalizeReview fills the derived fields of a review report.
func FinalizeReview(r *Report) {
	r.FinalReport = FinalReport(r.Outputs)
	r.Summary = r.Outputs.Get(StageSummary)
	if text, ok := r.Outputs[StageQuality]; ok {
		r.Scores = ParseScores(text)
	}
}
