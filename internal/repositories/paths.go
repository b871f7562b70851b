package repositories

import "github.com/anonto42/freelink/backend/pkg/store"

// Layout of the hierarchical store.
const (
	usersRoot         = "users"
	jobsRoot          = "jobs"
	notificationsRoot = "notifications"
	messagesRoot      = "messages"

	acceptedFreelancersKey = "acceptedFreelancers"
	linkedEmployersKey     = "linkedEmployers"
	blockedUsersKey        = "blockedUsers"
)

func userPath(id string) string { return store.Join(usersRoot, id) }

func jobPath(id string) string { return store.Join(jobsRoot, id) }

func acceptedFreelancerPath(employerID, freelancerID string) string {
	return store.Join(usersRoot, employerID, acceptedFreelancersKey, freelancerID)
}

func linkedEmployerPath(freelancerID, employerID string) string {
	return store.Join(usersRoot, freelancerID, linkedEmployersKey, employerID)
}

func blockPath(userID, otherID string) string {
	return store.Join(usersRoot, userID, blockedUsersKey, otherID)
}

func notificationsPath(recipientID string) string {
	return store.Join(notificationsRoot, recipientID)
}

func channelPath(employerID, freelancerID string) string {
	return store.Join(messagesRoot, employerID, freelancerID)
}
