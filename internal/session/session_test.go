package session_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/session"
)

const originalText = "Als Benutzer möchte ich mich einloggen können, damit ich auf mein Konto zugreifen kann."

func newReviewedSession() *session.Session {
	s := session.New(1000, originalText)
	s.ApplyRunResult(&pipeline.RunResult{
		Findings: []model.Finding{
			{ID: 1, Stage: model.StageAmbiguityAnalysis, Category: model.CategoryAmbiguity, Severity: model.SeverityMajor, Reasoning: "Login method unclear."},
			{ID: 2, Stage: model.StageQualityCheck, Category: model.CategoryNotTestable, Severity: model.SeverityCritical, Reasoning: "No success condition."},
		},
		StageResults: []model.StageResult{
			{Stage: model.StageAmbiguityAnalysis, Status: model.StageCompleted},
		},
		OverallScore: 60,
		Summary:      "Needs work.",
	})
	s.AddCandidates([]model.RewriteCandidate{
		{ID: 10, SuggestedText: "Kandidat A.", Status: model.ReviewStatusPending},
		{ID: 11, SuggestedText: "Kandidat B.", Status: model.ReviewStatusPending},
	})
	s.AddCriteria([]model.AcceptanceCriterion{
		{ID: 20, Title: "Login", Given: "ein Benutzer", When: "er sich anmeldet", Then: "sieht er sein Konto", Status: model.ReviewStatusPending},
		{ID: 21, Title: "Fehler", Given: "ein Benutzer", When: "das Passwort falsch ist", Then: "erscheint ein Hinweis", Status: model.ReviewStatusPending},
	}, nil, nil)
	return s
}

var _ = Describe("Session", func() {
	BeforeEach(func() {
		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("defaults current text to the original and records the initial version", func() {
			s := session.New(1, originalText)
			snap := s.Snapshot()

			Expect(snap.Story.OriginalText).To(Equal(originalText))
			Expect(snap.Story.CurrentText).To(Equal(originalText))
			Expect(snap.History).To(HaveLen(1))
			Expect(snap.History[0].Action).To(Equal(model.VersionInitial))
			Expect(snap.Decisions).To(BeEmpty())
		})
	})

	Describe("finding curation", func() {
		It("marks accepted findings relevant and appends one decision each", func() {
			s := newReviewedSession()

			Expect(s.AcceptFinding(1)).To(BeTrue())
			Expect(s.RejectFinding(2)).To(BeTrue())

			snap := s.Snapshot()
			Expect(*snap.Findings[0].IsRelevant).To(BeTrue())
			Expect(*snap.Findings[1].IsRelevant).To(BeFalse())
			Expect(snap.Decisions).To(HaveLen(2))
			Expect(snap.Decisions[0].TargetType).To(Equal(model.TargetFinding))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionAccepted))
			Expect(snap.Decisions[0].OriginalValue).To(Equal("Login method unclear."))

			relevant := s.RelevantFindings()
			Expect(relevant).To(HaveLen(1))
			Expect(relevant[0].ID).To(Equal(int64(1)))
		})

		It("appends a new record when a finding is re-decided", func() {
			s := newReviewedSession()

			Expect(s.AcceptFinding(1)).To(BeTrue())
			Expect(s.RejectFinding(1)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Decisions).To(HaveLen(2))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionAccepted))
			Expect(snap.Decisions[1].Decision).To(Equal(model.DecisionRejected))
			Expect(*snap.Findings[0].IsRelevant).To(BeFalse())
		})

		It("ignores unknown finding ids without recording a decision", func() {
			s := newReviewedSession()

			Expect(s.AcceptFinding(999)).To(BeFalse())
			Expect(s.RejectFinding(999)).To(BeFalse())
			Expect(s.AnnotateFinding(999, "note")).To(BeFalse())

			Expect(s.Snapshot().Decisions).To(BeEmpty())
		})

		It("annotates without appending a decision", func() {
			s := newReviewedSession()

			Expect(s.AnnotateFinding(1, "wichtig für Sprint")).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Findings[0].UserNote).To(Equal("wichtig für Sprint"))
			Expect(snap.Decisions).To(BeEmpty())
		})
	})

	Describe("rewrite decisions", func() {
		It("accepting a candidate makes its text current", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "")).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Story.CurrentText).To(Equal("Kandidat A."))
			Expect(snap.Story.OriginalText).To(Equal(originalText))
			Expect(snap.Candidates[0].Status).To(Equal(model.ReviewStatusAccepted))
			Expect(snap.Decisions).To(HaveLen(1))
			Expect(snap.Decisions[0].OriginalValue).To(Equal("Kandidat A."))
			Expect(snap.Decisions[0].EditedValue).To(BeNil())
			Expect(snap.History[len(snap.History)-1].Action).To(Equal(model.VersionRewriteAccepted))
			Expect(snap.History[len(snap.History)-1].StoryText).To(Equal("Kandidat A."))
		})

		It("accepting with edits records the original suggestion in the audit", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "Kandidat A, verschärft.")).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Story.CurrentText).To(Equal("Kandidat A, verschärft."))
			Expect(snap.Candidates[0].Status).To(Equal(model.ReviewStatusEdited))
			Expect(snap.Candidates[0].EditedText).To(Equal("Kandidat A, verschärft."))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionEdited))
			Expect(snap.Decisions[0].OriginalValue).To(Equal("Kandidat A."))
			Expect(*snap.Decisions[0].EditedValue).To(Equal("Kandidat A, verschärft."))
		})

		It("keeps at most one candidate holding the current text", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "")).To(BeTrue())
			Expect(s.AcceptRewrite(11, "")).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Candidates[0].Status).To(Equal(model.ReviewStatusPending))
			Expect(snap.Candidates[1].Status).To(Equal(model.ReviewStatusAccepted))
			Expect(snap.Story.CurrentText).To(Equal("Kandidat B."))
			Expect(snap.Decisions).To(HaveLen(2))
		})

		It("appends two records for accept then reject of the same candidate", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "")).To(BeTrue())
			Expect(s.RejectRewrite(10)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Decisions).To(HaveLen(2))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionAccepted))
			Expect(snap.Decisions[1].Decision).To(Equal(model.DecisionRejected))
		})

		It("reverts to the original text when the accepted candidate is rejected", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "")).To(BeTrue())
			Expect(s.RejectRewrite(10)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Candidates[0].Status).To(Equal(model.ReviewStatusRejected))
			Expect(snap.Story.CurrentText).To(Equal(originalText))
		})

		It("leaves the current text alone when rejecting a pending candidate", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(10, "")).To(BeTrue())
			Expect(s.RejectRewrite(11)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Story.CurrentText).To(Equal("Kandidat A."))
			Expect(snap.Candidates[1].Status).To(Equal(model.ReviewStatusRejected))
		})

		It("ignores unknown candidate ids", func() {
			s := newReviewedSession()

			Expect(s.AcceptRewrite(999, "")).To(BeFalse())
			Expect(s.RejectRewrite(999)).To(BeFalse())
			Expect(s.Snapshot().Decisions).To(BeEmpty())
		})
	})

	Describe("criterion decisions", func() {
		It("accepts into the final set", func() {
			s := newReviewedSession()

			Expect(s.AcceptCriterion(20, nil)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Criteria[0].Status).To(Equal(model.ReviewStatusAccepted))

			final := snap.FinalCriteria()
			Expect(final).To(HaveLen(1))
			Expect(final[0].ID).To(Equal(int64(20)))
		})

		It("applies field edits and records them", func() {
			s := newReviewedSession()

			ok := s.AcceptCriterion(20, map[string]string{"then": "wird er eingeloggt", "bogus": "x"})
			Expect(ok).To(BeTrue())

			snap := s.Snapshot()
			c := snap.CriterionByID(20)
			Expect(c.Status).To(Equal(model.ReviewStatusEdited))
			Expect(c.Field("then")).To(Equal("wird er eingeloggt"))
			Expect(c.Field("given")).To(Equal("ein Benutzer"))
			Expect(c.EditedFields).NotTo(HaveKey("bogus"))

			Expect(snap.Decisions).To(HaveLen(1))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionEdited))
			Expect(*snap.Decisions[0].EditedValue).To(ContainSubstring("wird er eingeloggt"))

			Expect(snap.FinalCriteria()).To(HaveLen(1))
		})

		It("keeps rejected criteria in the working list but out of the final set", func() {
			s := newReviewedSession()

			Expect(s.AcceptCriterion(20, nil)).To(BeTrue())
			Expect(s.RejectCriterion(21)).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.Criteria).To(HaveLen(2))
			Expect(snap.CriterionByID(21).Status).To(Equal(model.ReviewStatusRejected))

			final := snap.FinalCriteria()
			Expect(final).To(HaveLen(1))
			Expect(final[0].ID).To(Equal(int64(20)))
		})

		It("ignores unknown criterion ids", func() {
			s := newReviewedSession()

			Expect(s.AcceptCriterion(999, nil)).To(BeFalse())
			Expect(s.RejectCriterion(999)).To(BeFalse())
			Expect(s.Snapshot().Decisions).To(BeEmpty())
		})

		It("treats edits with only unknown keys as a plain accept", func() {
			s := newReviewedSession()

			Expect(s.AcceptCriterion(20, map[string]string{"priority": "must"})).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.CriterionByID(20).Status).To(Equal(model.ReviewStatusAccepted))
			Expect(snap.Decisions[0].Decision).To(Equal(model.DecisionAccepted))
		})
	})

	Describe("SetOriginal", func() {
		It("resets derived state but keeps the audit", func() {
			s := newReviewedSession()
			Expect(s.AcceptFinding(1)).To(BeTrue())
			Expect(s.AcceptRewrite(10, "")).To(BeTrue())
			decisionsBefore := len(s.Snapshot().Decisions)
			historyBefore := len(s.Snapshot().History)

			s.SetOriginal("Als Admin möchte ich Benutzer sperren können, damit Missbrauch endet.")

			snap := s.Snapshot()
			Expect(snap.Story.OriginalText).To(Equal("Als Admin möchte ich Benutzer sperren können, damit Missbrauch endet."))
			Expect(snap.Story.CurrentText).To(Equal(snap.Story.OriginalText))
			Expect(snap.Story.StructuredModel).To(BeNil())
			Expect(snap.Findings).To(BeEmpty())
			Expect(snap.Candidates).To(BeEmpty())
			Expect(snap.Criteria).To(BeEmpty())
			Expect(snap.StageResults).To(BeEmpty())
			Expect(snap.OverallScore).To(BeNil())
			Expect(snap.Summary).To(BeEmpty())

			Expect(snap.Decisions).To(HaveLen(decisionsBefore))
			Expect(snap.History).To(HaveLen(historyBefore + 1))
			Expect(snap.History[len(snap.History)-1].Action).To(Equal(model.VersionManualEdit))
		})
	})

	Describe("ApplyRunResult", func() {
		It("replaces analysis artifacts and appends run criteria", func() {
			s := newReviewedSession()
			s.ApplyRunResult(&pipeline.RunResult{
				Findings:     []model.Finding{{ID: 5, Severity: model.SeverityInfo, Category: model.CategoryOther}},
				StageResults: []model.StageResult{{Stage: model.StageAmbiguityAnalysis, Status: model.StageCompleted}},
				Structured:   &model.StructuredStory{Role: "Benutzer", Confidence: model.ConfidenceHigh},
				OverallScore: 85,
				Summary:      "Besser.",
				Criteria:     []model.AcceptanceCriterion{{ID: 30, Title: "Neu", Status: model.ReviewStatusPending}},
			})

			snap := s.Snapshot()
			Expect(snap.Findings).To(HaveLen(1))
			Expect(snap.Findings[0].ID).To(Equal(int64(5)))
			Expect(*snap.OverallScore).To(Equal(85))
			Expect(snap.Story.StructuredModel.Role).To(Equal("Benutzer"))
			// Criteria from the run join the existing ones.
			Expect(snap.Criteria).To(HaveLen(3))
			// Candidates survive a re-run.
			Expect(snap.Candidates).To(HaveLen(2))
			Expect(snap.History[len(snap.History)-1].Action).To(Equal(model.VersionCriteriaAdded))
		})
	})

	Describe("EditCurrentText", func() {
		It("records a manual edit version", func() {
			s := newReviewedSession()

			s.EditCurrentText("Handgeschärfter Text.")

			snap := s.Snapshot()
			Expect(snap.Story.CurrentText).To(Equal("Handgeschärfter Text."))
			last := snap.History[len(snap.History)-1]
			Expect(last.Action).To(Equal(model.VersionManualEdit))
			Expect(last.StoryText).To(Equal("Handgeschärfter Text."))
		})
	})
})
