package domain

// Fortress 部落要塞，Garrison 由全体成员共享。
type Fortress struct {
	X        int  `json:"x" bson:"x"`
	Y        int  `json:"y" bson:"y"`
	Level    int  `json:"level" bson:"level"`
	Garrison Army `json:"garrison" bson:"garrison"`
}

func (f *Fortress) Coord() Coord {
	return Coord{X: f.X, Y: f.Y}
}

type Clan struct {
	ID       string    `json:"id" bson:"_id"`
	Tag      string    `json:"tag" bson:"tag"`
	Name     string    `json:"name" bson:"name"`
	Leader   string    `json:"leader" bson:"leader"`
	Members  []string  `json:"members" bson:"members"`
	Fortress *Fortress `json:"fortress,omitempty" bson:"fortress,omitempty"`
	Treasury Resources `json:"treasury" bson:"treasury"`
}

func (c *Clan) IsMember(user string) bool {
	for _, m := range c.Members {
		if m == user {
			return true
		}
	}
	return c.Leader == user
}
