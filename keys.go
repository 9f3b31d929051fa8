package cachefront

import "github.com/unkn0wn-root/cachefront/internal/keyutil"

// Cache key templates. Every cached read and every dependency-table entry
// goes through these builders so the keyspace stays auditable in one place.
//
// Namespaces:
//
//	course:<id>                      single entity
//	courses_list:<digest>            collection listing (prefix-swept)
//	search:<digest>                  search results (prefix-swept)
//	progress:<user>:<course>         derived view
//	dashboard:<user>                 derived view
//	analytics:course:<id>            derived view
//	analytics:student:<user>:patterns derived view
//	analytics:platform:overview      platform-wide derived view
//	popular_courses                  platform-wide listing
const (
	CoursesListPrefix = "courses_list:"
	SearchPrefix      = "search:"
)

func CourseKey(courseID string) string { return "course:" + courseID }

// CoursesListKey keys one page of a filtered listing. The params tuple is
// digested, not embedded: listing keys are only ever removed by prefix sweep.
func CoursesListKey(params any) string {
	return CoursesListPrefix + keyutil.Digest(params)
}

func SearchKey(query any) string { return SearchPrefix + keyutil.Digest(query) }

func ProgressKey(userID, courseID string) string {
	return "progress:" + userID + ":" + courseID
}

func DashboardKey(userID string) string { return "dashboard:" + userID }

func AnalyticsCourseKey(courseID string) string {
	return "analytics:course:" + courseID
}

func AnalyticsStudentPatternsKey(userID string) string {
	return "analytics:student:" + userID + ":patterns"
}

func AnalyticsPlatformOverviewKey() string { return "analytics:platform:overview" }

func PopularCoursesKey() string { return "popular_courses" }

// KeyNamespace reports the namespace a key belongs to, used for stats
// attribution.
func KeyNamespace(key string) string { return keyutil.Namespace(key) }
