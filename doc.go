// Package refrank ranks healthcare providers around a street address.
//
// A search resolves a free-form or structured address to coordinates through
// a geocoder, filters a provider dataset by distance and referral volume,
// and scores the survivors on weighted proximity, referral count, and
// referral recency.
//
// # Quickstart — injected providers, no external services
//
//	client, _ := refrank.New(
//	    refrank.WithProviders(providers),
//	    refrank.WithGeocoder(myGeocoder),
//	)
//	defer client.Close()
//
//	result, _ := client.Search(ctx, refrank.Address{
//	    Street: "14350 Old Marlboro Pike",
//	    City:   "Upper Marlboro",
//	    State:  "MD",
//	    Zip:    "20772",
//	}, nil)
//	best, _ := result.Best()
//
// # Production — Redis-backed cache and a dataset file
//
//	client, _ := refrank.New(
//	    refrank.WithRedis("localhost:6379", ""),
//	    refrank.WithDataset("providers.parquet", ""),
//	    refrank.WithNominatim("https://nominatim.openstreetmap.org", "myapp/1.0"),
//	)
package refrank
