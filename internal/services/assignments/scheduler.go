package assignments

import (
	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

// Step is one visit of the assignment walk.
type Step struct {
	Signup *model.Signup
	Role   enums.Role
}

// Schedule orders signups from scarcest to most abundant. Each signup lands
// in a request bucket keyed by its request match count and in an offer
// bucket keyed by its offer match count. Counts are visited from 0 up to the
// largest count seen; for each count the request bucket goes first, then the
// offer bucket, each in shuffled order. Signups are not modified.
func Schedule(signups []*model.Signup, shuffler Shuffler) []Step {
	requestBuckets := make(map[int][]*model.Signup)
	offerBuckets := make(map[int][]*model.Signup)
	maxCount := 0

	for _, signup := range signups {
		requestCount := len(signup.RequestPotentialMatches)
		offerCount := len(signup.OfferPotentialMatches)
		requestBuckets[requestCount] = append(requestBuckets[requestCount], signup)
		offerBuckets[offerCount] = append(offerBuckets[offerCount], signup)
		maxCount = max(maxCount, requestCount, offerCount)
	}

	steps := make([]Step, 0, 2*len(signups))
	for count := 0; count <= maxCount; count++ {
		steps = appendBucket(steps, requestBuckets[count], enums.RoleRequest, shuffler)
		steps = appendBucket(steps, offerBuckets[count], enums.RoleOffer, shuffler)
	}

	return steps
}

func appendBucket(steps []Step, bucket []*model.Signup, role enums.Role, shuffler Shuffler) []Step {
	if len(bucket) == 0 {
		return steps
	}
	if shuffler != nil {
		shuffler.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
	}
	for _, signup := range bucket {
		steps = append(steps, Step{Signup: signup, Role: role})
	}
	return steps
}
