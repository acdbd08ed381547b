package catalog

// keras mirrors keras.applications: declaration order, default input sizes and
// a HuggingFace mirror of the ImageNet weights for each entry.
var keras = []Architecture{
	{Name: "Xception", Family: FamilyXception, InputSize: 299, Repository: "timm/legacy_xception.tf_in1k"},
	{Name: "VGG16", Family: FamilyVGG, InputSize: 224, Repository: "timm/vgg16.tv_in1k"},
	{Name: "VGG19", Family: FamilyVGG, InputSize: 224, Repository: "timm/vgg19.tv_in1k"},
	{Name: "ResNet50", Family: FamilyResNet, InputSize: 224, Repository: "timm/resnet50.tv_in1k"},
	{Name: "ResNet50V2", Family: FamilyResNetV2, InputSize: 224, Repository: "timm/resnetv2_50.a1h_in1k"},
	{Name: "ResNet101", Family: FamilyResNet, InputSize: 224, Repository: "timm/resnet101.tv_in1k"},
	{Name: "ResNet101V2", Family: FamilyResNetV2, InputSize: 224, Repository: "timm/resnetv2_101.a1h_in1k"},
	{Name: "ResNet152", Family: FamilyResNet, InputSize: 224, Repository: "timm/resnet152.tv_in1k"},
	{Name: "ResNet152V2", Family: FamilyResNetV2, InputSize: 224, Repository: "timm/resnetv2_152x2_bit.goog_in21k_ft_in1k"},
	{Name: "InceptionV3", Family: FamilyInception, InputSize: 299, Repository: "timm/inception_v3.tf_in1k"},
	{Name: "InceptionResNetV2", Family: FamilyInceptionResNet, InputSize: 299, Repository: "timm/inception_resnet_v2.tf_in1k"},
	{Name: "MobileNet", Family: FamilyMobileNet, InputSize: 224, Repository: "timm/mobilenetv1_100.ra4_e3600_r224_in1k"},
	{Name: "MobileNetV2", Family: FamilyMobileNetV2, InputSize: 224, Repository: "timm/mobilenetv2_100.ra_in1k"},
	{Name: "DenseNet121", Family: FamilyDenseNet, InputSize: 224, Repository: "timm/densenet121.tv_in1k"},
	{Name: "DenseNet169", Family: FamilyDenseNet, InputSize: 224, Repository: "timm/densenet169.tv_in1k"},
	{Name: "DenseNet201", Family: FamilyDenseNet, InputSize: 224, Repository: "timm/densenet201.tv_in1k"},
	// No public safetensors mirror; loading with ImageNet weights fails.
	{Name: "NASNetMobile", Family: FamilyNASNet, InputSize: 224},
	{Name: "NASNetLarge", Family: FamilyNASNet, InputSize: 331, Repository: "timm/nasnetalarge.tf_in1k"},
	{Name: "EfficientNetB0", Family: FamilyEfficientNet, InputSize: 224, Repository: "timm/tf_efficientnet_b0.in1k"},
	{Name: "EfficientNetB1", Family: FamilyEfficientNet, InputSize: 240, Repository: "timm/tf_efficientnet_b1.in1k"},
	{Name: "EfficientNetB2", Family: FamilyEfficientNet, InputSize: 260, Repository: "timm/tf_efficientnet_b2.in1k"},
	{Name: "EfficientNetB3", Family: FamilyEfficientNet, InputSize: 300, Repository: "timm/tf_efficientnet_b3.in1k"},
	{Name: "EfficientNetB4", Family: FamilyEfficientNet, InputSize: 380, Repository: "timm/tf_efficientnet_b4.in1k"},
	{Name: "EfficientNetB5", Family: FamilyEfficientNet, InputSize: 456, Repository: "timm/tf_efficientnet_b5.in1k"},
	{Name: "EfficientNetB6", Family: FamilyEfficientNet, InputSize: 528, Repository: "timm/tf_efficientnet_b6.aa_in1k"},
	{Name: "EfficientNetB7", Family: FamilyEfficientNet, InputSize: 600, Repository: "timm/tf_efficientnet_b7.aa_in1k"},
	{Name: "EfficientNetV2B0", Family: FamilyEfficientNetV2, InputSize: 224, Repository: "timm/tf_efficientnetv2_b0.in1k"},
	{Name: "EfficientNetV2B1", Family: FamilyEfficientNetV2, InputSize: 240, Repository: "timm/tf_efficientnetv2_b1.in1k"},
	{Name: "EfficientNetV2B2", Family: FamilyEfficientNetV2, InputSize: 260, Repository: "timm/tf_efficientnetv2_b2.in1k"},
	{Name: "EfficientNetV2B3", Family: FamilyEfficientNetV2, InputSize: 300, Repository: "timm/tf_efficientnetv2_b3.in1k"},
	{Name: "EfficientNetV2S", Family: FamilyEfficientNetV2, InputSize: 384, Repository: "timm/tf_efficientnetv2_s.in1k"},
	{Name: "EfficientNetV2M", Family: FamilyEfficientNetV2, InputSize: 480, Repository: "timm/tf_efficientnetv2_m.in21k_ft_in1k"},
	{Name: "EfficientNetV2L", Family: FamilyEfficientNetV2, InputSize: 480, Repository: "timm/tf_efficientnetv2_l.in21k_ft_in1k"},
	{Name: "ConvNeXtTiny", Family: FamilyConvNeXt, InputSize: 224, Repository: "timm/convnext_tiny.fb_in1k"},
	{Name: "ConvNeXtSmall", Family: FamilyConvNeXt, InputSize: 224, Repository: "timm/convnext_small.fb_in1k"},
	{Name: "ConvNeXtBase", Family: FamilyConvNeXt, InputSize: 224, Repository: "timm/convnext_base.fb_in1k"},
	{Name: "ConvNeXtLarge", Family: FamilyConvNeXt, InputSize: 224, Repository: "timm/convnext_large.fb_in1k"},
	{Name: "ConvNeXtXLarge", Family: FamilyConvNeXt, InputSize: 224, Repository: "timm/convnext_xlarge.fb_in22k_ft_in1k"},
}

// Default returns the Keras application catalog.
func Default() *Catalog {
	c, err := New(keras...)
	if err != nil {
		panic(err)
	}
	return c
}
