package domain

type Community struct {
	ID            int64
	Name          string
	Slug          string
	Description   string
	DestinationID int64
	ManagerID     *int64
}

type CommunityManager struct {
	ID    int64
	Name  string
	Email string
	Phone string
}
