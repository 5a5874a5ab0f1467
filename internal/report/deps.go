package report

import "feedbackapi/internal/domain"

type Feedback = domain.Feedback

const defaultDashboardURL = "https://your-dashboard-url.com"
