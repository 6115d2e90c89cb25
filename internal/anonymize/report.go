package anonymize

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

const (
	headerTreeTemplateConstant        = "tree %s\n"
	headerParentTemplateConstant      = "parent %s\n"
	headerSignatureTemplateConstant   = "%s %s <%s> %d %s\n"
	headerAuthorKeyConstant           = "author"
	headerCommitterKeyConstant        = "committer"
	signatureOffsetLayoutConstant     = "-0700"
	identityDiffContextLinesConstant  = 3
	reportIndentSpacesConstant        = 2
	reportEncodeErrorTemplateConstant = "unable to encode report: %w"
)

// RenderIdentityDiff renders a unified diff between the headers of the original and replacement commits.
func RenderIdentityDiff(original *object.Commit, replacement *object.Commit) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(renderCommitHeader(original)),
		B:        difflib.SplitLines(renderCommitHeader(replacement)),
		FromFile: original.Hash.String(),
		ToFile:   replacement.Hash.String(),
		Context:  identityDiffContextLinesConstant,
	})
}

func renderCommitHeader(commit *object.Commit) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(headerTreeTemplateConstant, commit.TreeHash))
	for _, parentID := range commit.ParentHashes {
		builder.WriteString(fmt.Sprintf(headerParentTemplateConstant, parentID))
	}
	builder.WriteString(renderSignature(headerAuthorKeyConstant, commit.Author))
	builder.WriteString(renderSignature(headerCommitterKeyConstant, commit.Committer))
	return builder.String()
}

func renderSignature(key string, signature object.Signature) string {
	return fmt.Sprintf(headerSignatureTemplateConstant, key, signature.Name, signature.Email, signature.When.Unix(), signature.When.Format(signatureOffsetLayoutConstant))
}

// Report collects the outcome of every repository processed in one run.
type Report struct {
	Repositories []RepositoryReport `yaml:"repositories"`
}

// RepositoryReport describes one repository in a Report.
type RepositoryReport struct {
	Path                  string         `yaml:"path"`
	DryRun                bool           `yaml:"dry_run"`
	CommitsVisited        int            `yaml:"commits_visited"`
	CommitsCreated        int            `yaml:"commits_created"`
	CommitsCarriedThrough int            `yaml:"commits_carried_through"`
	Branches              []BranchReport `yaml:"branches,omitempty"`
	Error                 string         `yaml:"error,omitempty"`
}

// BranchReport describes one branch in a RepositoryReport.
type BranchReport struct {
	Name              string `yaml:"name"`
	OriginalTarget    string `yaml:"original"`
	ReplacementTarget string `yaml:"replacement"`
	CheckedOut        bool   `yaml:"checked_out,omitempty"`
	Changed           bool   `yaml:"changed"`
}

// NewRepositoryReport converts a service result and optional failure into a report entry.
func NewRepositoryReport(repositoryPath string, result Result, failure error) RepositoryReport {
	reportPath := result.RepositoryPath
	if len(reportPath) == 0 {
		reportPath = repositoryPath
	}
	repositoryReport := RepositoryReport{
		Path:                  reportPath,
		DryRun:                result.DryRun,
		CommitsVisited:        result.Statistics.Visited,
		CommitsCreated:        result.Statistics.Created,
		CommitsCarriedThrough: result.Statistics.CarriedThrough,
	}
	for _, update := range result.Updates {
		repositoryReport.Branches = append(repositoryReport.Branches, BranchReport{
			Name:              update.BranchName,
			OriginalTarget:    update.OriginalTarget.String(),
			ReplacementTarget: update.ReplacementTarget.String(),
			CheckedOut:        update.CheckedOut,
			Changed:           update.Changed(),
		})
	}
	if failure != nil {
		repositoryReport.Error = failure.Error()
	}
	return repositoryReport
}

// WriteYAML encodes the report as YAML.
func (report Report) WriteYAML(writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(reportIndentSpacesConstant)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
	}
	return encoder.Close()
}
