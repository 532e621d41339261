package client

import "github.com/devsapp/serverless-automl-api/pkg/models"

// Merge fold a fresh snapshot into the known one. incoming is the base, the
// presigned links keep their known value when incoming drops or reissues them
// so a consumer does not reload the same artifact.
func Merge(current, incoming *models.JobResponse) *models.JobResponse {
	if incoming == nil {
		return current
	}
	merged := *incoming
	if current == nil || current.JobID != incoming.JobID {
		return &merged
	}
	merged.ModelURL = preferOld(current.ModelURL, incoming.ModelURL)
	merged.AlternateModelURL = preferOld(current.AlternateModelURL, incoming.AlternateModelURL)
	if len(current.ReportURLs) > 0 || len(incoming.ReportURLs) > 0 {
		merged.ReportURLs = make(map[string]string, len(incoming.ReportURLs)+len(current.ReportURLs))
		for name, link := range incoming.ReportURLs {
			merged.ReportURLs[name] = link
		}
		for name, link := range current.ReportURLs {
			merged.ReportURLs[name] = preferOld(link, merged.ReportURLs[name])
		}
	}
	return &merged
}

func preferOld(old, fresh string) string {
	if old != "" {
		return old
	}
	return fresh
}
