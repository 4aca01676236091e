package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// conditionalInc 生成 $inc 更新与配套的 $gte 过滤条件：负向分量要求余量足够，
// 整个文档要么全部更新要么不动。
func conditionalInc[K ~string](filter bson.M, prefix string, delta map[K]int64) (bson.M, bson.M, bool) {
	inc := bson.M{}
	for k, d := range delta {
		if d == 0 {
			continue
		}
		field := prefix + "." + string(k)
		inc[field] = d
		if d < 0 {
			filter[field] = bson.M{"$gte": -d}
		}
	}
	if len(inc) == 0 {
		return filter, nil, false
	}
	return filter, bson.M{"$inc": inc}, true
}
