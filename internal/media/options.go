package media

import "lms/internal/constants"

type ResourceType string

const (
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
)

// UploadOptions is passed through to the store unchanged. Width, Height,
// Gravity and Crop describe the transform applied to image uploads.
type UploadOptions struct {
	Folder       string
	Width        int
	Height       int
	Gravity      string
	Crop         string
	ResourceType ResourceType
	ChunkSize    int64
}

type DestroyOptions struct {
	ResourceType ResourceType
}

const (
	CropFill     = "fill"
	GravityFaces = "faces"
)

func AvatarOptions(folder string) UploadOptions {
	return UploadOptions{
		Folder:       folder,
		Width:        constants.AvatarEdge,
		Height:       constants.AvatarEdge,
		Gravity:      GravityFaces,
		Crop:         CropFill,
		ResourceType: ResourceImage,
	}
}

func ThumbnailOptions(folder string) UploadOptions {
	return UploadOptions{
		Folder:       folder,
		ResourceType: ResourceImage,
	}
}

func LectureVideoOptions(folder string) UploadOptions {
	return UploadOptions{
		Folder:       folder,
		ResourceType: ResourceVideo,
		ChunkSize:    constants.LectureVideoChunkSize,
	}
}

// DestroyOptionsFor mirrors the resource type an asset was uploaded with.
func DestroyOptionsFor(opts UploadOptions) DestroyOptions {
	rt := opts.ResourceType
	if rt == "" {
		rt = ResourceImage
	}
	return DestroyOptions{ResourceType: rt}
}
